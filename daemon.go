/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Demonization
 */

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Daemonized reports whether this process was started via Daemon().
// The child is made a session leader there, which a process started
// from a shell never is
func Daemonized() bool {
	sid, err := unix.Getsid(0)
	return err == nil && sid == os.Getpid()
}

// CloseStdInOutErr detaches the process from the terminal, pointing
// stdin/stdout/stderr to the null device
func CloseStdInOutErr() error {
	nul, err := syscall.Open(os.DevNull, syscall.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("Open %q: %s", os.DevNull, err)
	}

	for _, fd := range []int{syscall.Stdin, syscall.Stdout, syscall.Stderr} {
		syscall.Dup2(nul, fd)
	}

	if nul > syscall.Stderr {
		syscall.Close(nul)
	}

	return nil
}

// Daemon re-runs ippserver in background.
//
// The child runs in its own session with stdin connected to the
// null device. Its stdout and stderr are captured through pipes
// until it finishes initialization, so configuration errors still
// reach the user who started the program
func Daemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		return fmt.Errorf("Open %q: %s", os.DevNull, err)
	}
	defer devnull.Close()

	// One pipe per captured stream
	var r, w [2]*os.File
	for i := range r {
		r[i], w[i], err = os.Pipe()
		if err != nil {
			return fmt.Errorf("pipe(): %s", err)
		}
	}

	// Pass all the arguments, except of -bg itself
	args := make([]string, 0, len(os.Args))
	for _, arg := range os.Args {
		if arg != "-bg" {
			args = append(args, arg)
		}
	}

	proc, err := os.StartProcess(exe, args, &os.ProcAttr{
		Files: []*os.File{devnull, w[0], w[1]},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return err
	}

	// The write ends belong to the child now
	w[0].Close()
	w[1].Close()

	var stdout, stderr bytes.Buffer
	io.Copy(&stdout, r[0])
	io.Copy(&stderr, r[1])

	if stdout.Len() != 0 {
		os.Stdout.Write(stdout.Bytes())
	}

	// Anything on stderr means the child failed to start
	if stderr.Len() > 0 {
		proc.Kill() // Just in case
		return errors.New(strings.TrimSpace(stderr.String()))
	}

	proc.Release()

	return nil
}
