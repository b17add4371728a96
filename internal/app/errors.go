package app

import "errors"

// Custom application-level errors
var (
	ErrCycleInProgress      = errors.New("distribution cycle already in progress")
	ErrChannelNotConfigured = errors.New("promotion channel is not configured")
	ErrChannelNotPostable   = errors.New("bot cannot post to the selected channel")
	ErrNotCommunityAdmin    = errors.New("user is not an administrator of the community")
)
