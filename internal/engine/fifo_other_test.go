//go:build !unix

package engine

import "errors"

func mkfifo(string) error {
	return errors.New("no fifos on this platform")
}
