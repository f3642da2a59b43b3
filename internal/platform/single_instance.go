// Package platform holds the OS-facing pieces of the desktop host.
package platform

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"sync"
)

// ErrAlreadyRunning indicates another widget process already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

const (
	lockPortMin = 20000
	lockPortMax = 39999
)

// InstanceLock keeps a loopback listener open for as long as the process
// should be considered the only running widget.
type InstanceLock struct {
	once     sync.Once
	listener net.Listener
	address  string
}

// AcquireInstanceLock binds the loopback port derived from appName. A second
// caller with the same name gets ErrAlreadyRunning until Release.
func AcquireInstanceLock(appName string) (*InstanceLock, error) {
	address := fmt.Sprintf("127.0.0.1:%d", LockPort(appName))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: bind %s: %v", ErrAlreadyRunning, address, err)
	}
	return &InstanceLock{listener: listener, address: address}, nil
}

// Release frees the lock. Safe to call more than once and on a nil lock.
func (lock *InstanceLock) Release() error {
	if lock == nil || lock.listener == nil {
		return nil
	}
	var err error
	lock.once.Do(func() {
		err = lock.listener.Close()
	})
	return err
}

// Address returns the bound loopback address.
func (lock *InstanceLock) Address() string {
	if lock == nil {
		return ""
	}
	return lock.address
}

// LockPort maps appName onto a stable port in the lock range.
func LockPort(appName string) int {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	span := uint32(lockPortMax - lockPortMin + 1)
	return lockPortMin + int(hash.Sum32()%span)
}
