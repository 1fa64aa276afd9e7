package hist

import (
	"errors"

	"github.com/aweris/hist/internal/store"
)

var (
	ErrNotInitialized          = store.ErrUninitialized
	ErrAlreadyInitialized      = store.ErrInitialized
	ErrNotYetTracked           = store.ErrNotYetTracked
	ErrCorruptMetadata         = store.ErrCorruptMetadata
	ErrTruncatedBlob           = store.ErrTruncatedBlob
	ErrRemoteAlreadyConfigured = store.ErrRemoteExists
	ErrNoRemote                = store.ErrNoRemote

	ErrRemoteAhead    = errors.New("hist: remote has commits missing locally")
	ErrNothingToPush  = errors.New("hist: nothing to push")
	ErrRemoteEmpty    = errors.New("hist: remote has no history")
	ErrCommitNotFound = errors.New("hist: commit not found")
)
