package channel

import "errors"

// Custom channel service errors
var (
	// ErrChannelNotFound indicates the requested channel does not exist
	ErrChannelNotFound = errors.New("channel not found")

	// ErrDuplicateChannelName indicates a channel with the same name already exists
	ErrDuplicateChannelName = errors.New("channel name already exists")

	// ErrInvalidChannelName indicates an empty or overlong channel name
	ErrInvalidChannelName = errors.New("channel name must be between 1 and 255 characters")

	// ErrBucketNotFound indicates the referenced bucket does not exist
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrBucketAlreadyAttached indicates the bucket is already attached to the channel
	ErrBucketAlreadyAttached = errors.New("bucket already attached to channel")

	// ErrBucketNotAttached indicates the bucket is not attached to the channel
	ErrBucketNotAttached = errors.New("bucket not attached to channel")
)

// IsChannelNotFound checks if the error is a channel not found error
func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}

// IsDuplicateName checks if the error is a duplicate channel name error
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateChannelName)
}

// IsBucketNotFound checks if the error is a bucket not found error
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}
