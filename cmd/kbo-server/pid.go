package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// managePIDFile writes the current PID to path, optionally holding an exclusive
// lock so a second server cannot ingest into the same store. The returned
// cleanup releases the lock and removes the file.
func managePIDFile(path string, lock bool) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("cannot create PID file: %w", err)
		}
		if lock {
			if err := checkExistingPID(path); err != nil {
				return nil, err
			}
		}
		// Truncated only once the lock is held
		if file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644); err != nil {
			return nil, fmt.Errorf("cannot open PID file: %w", err)
		}
	}

	fail := func(format string, err error) (func(), error) {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf(format, err)
	}

	if lock {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return nil, fmt.Errorf("cannot acquire lock: another kbo-server is running")
			}
			return nil, fmt.Errorf("lock failed: %w", err)
		}
	}

	if err := file.Truncate(0); err != nil {
		return fail("cannot truncate PID file: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		return fail("cannot write PID: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fail("cannot sync PID file: %w", err)
	}

	return func() {
		if lock {
			syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		}
		file.Close()
		os.Remove(path)
	}, nil
}

// checkExistingPID rejects a PID file that cannot be read or whose owner cannot
// be signalled. Whether a live owner still runs is settled by the flock.
func checkExistingPID(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read existing PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// Unparseable content is overwritten
		return nil
	}

	// FindProcess never fails on Unix
	proc, _ := os.FindProcess(pid)
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("process %d exists but cannot verify ownership: %v", pid, err)
	}

	return nil
}
