package bucket

import "errors"

// Custom bucket service errors
var (
	// ErrBucketNotFound indicates the requested bucket does not exist
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrDuplicateBucketName indicates a bucket with the same name already exists
	ErrDuplicateBucketName = errors.New("bucket name already exists")

	// ErrInvalidBucketName indicates an empty or overlong bucket name
	ErrInvalidBucketName = errors.New("bucket name must be between 1 and 255 characters")

	// ErrMediaNotFound indicates a referenced media file does not exist in the catalog
	ErrMediaNotFound = errors.New("media file not found")

	// ErrMemberNotFound indicates no member exists at the given position
	ErrMemberNotFound = errors.New("bucket member not found")

	// ErrEmptyBucket indicates an operation that needs members ran against an empty bucket
	ErrEmptyBucket = errors.New("bucket has no members")
)

// IsBucketNotFound checks if the error is a bucket not found error
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsDuplicateName checks if the error is a duplicate bucket name error
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateBucketName)
}
