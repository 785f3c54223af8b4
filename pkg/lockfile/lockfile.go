package lockfile

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Take acquires the advisory lock at path, retrying once a second
// until it wins or ctx is cancelled. Only contention is retried; any
// other filesystem error is returned as is. waiting is called each
// time the lock turns out to be held by someone else. The returned
// closer releases the lock.
func Take(ctx context.Context, path string, waiting func()) (func(), error) {
	tk := time.NewTicker(time.Second)
	defer tk.Stop()

	var (
		f   *os.File
		err error
	)

	for {
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			break
		}

		if !os.IsExist(err) {
			return nil, err
		}

		if waiting != nil {
			waiting()
		}

		select {
		case <-tk.C:
			// ok
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	closer := func() {
		os.Remove(path)
	}

	return closer, nil
}

// Holder reports the pid recorded in a held lock, or 0 when the lock
// is free or carries no pid.
func Holder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}
