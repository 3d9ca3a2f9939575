/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * UUID normalizer and generator
 */

package main

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// UUIDNormalize parses an UUID and then reformats it into
// the standard form (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx)
//
// If input is not a valid UUID, it returns an empty string
// Many standard formats of UUIDs are recognized
func UUIDNormalize(uuid string) string {
	in := strings.ToLower(uuid)
	in = strings.TrimPrefix(in, "urn:")
	in = strings.TrimPrefix(in, "uuid:")

	// Pick hex digits, skipping dashes and other decorations
	var digits []byte
	for i := 0; i < len(in); i++ {
		c := in[i]
		if '0' <= c && c <= '9' || 'a' <= c && c <= 'f' {
			digits = append(digits, c)
		}
	}

	if len(digits) != 32 {
		return ""
	}

	return uuidFormat(digits)
}

// UUIDGenerate builds a name-based (version 3) UUID out of the
// server name, port and printer name, so that a printer keeps
// its identity across restarts
func UUIDGenerate(server string, port int, name string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%s", server, port, name)))

	// Version 3 stamp, with the variant bits the way CUPS sets them
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x40

	digits := make([]byte, 32)
	hex.Encode(digits, sum[:])

	return uuidFormat(digits)
}

// uuidFormat inserts dashes into a string of 32 hex digits
func uuidFormat(digits []byte) string {
	var buf strings.Builder

	for i, span := range []int{8, 4, 4, 4, 12} {
		if i > 0 {
			buf.WriteByte('-')
		}
		buf.Write(digits[:span])
		digits = digits[span:]
	}

	return buf.String()
}
