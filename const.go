/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Configuration constants
 */

package main

import (
	"time"
)

const (
	// DNSSdRetryInterval specifies the retry interval in a case
	// of failed DNS-SD operation
	DNSSdRetryInterval = 1 * time.Second

	// DNSSdCheckInterval specifies how often the connection to
	// the DNS-SD daemon is verified
	DNSSdCheckInterval = 5 * time.Second

	// JobHistoryInterval specifies how often completed jobs are
	// swept out of the per-printer history
	JobHistoryInterval = 60 * time.Second

	// JobHistoryTimeout specifies how long a completed job stays
	// in the history before the sweep may drop it
	JobHistoryTimeout = 300 * time.Second

	// MaxJobsDefault is the default limit on queued jobs per printer
	MaxJobsDefault = 100

	// MaxCompletedJobsDefault is the default count of completed jobs
	// kept in the job history
	MaxCompletedJobsDefault = 100
)
