package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

func TestNewStorageError_Nil(t *testing.T) {
	assert.NoError(t, NewStorageError("count", domain.TableOpens, nil))
}

func TestStorageError_Matching(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStorageError("count", domain.TableOpens, cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrUnknownTable)

	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "count", storageErr.Op)
	assert.Equal(t, "storage: failed to count opens: connection refused", err.Error())
}

func TestStorageError_WithoutTable(t *testing.T) {
	err := NewStorageError("ping", "", errors.New("timeout"))
	assert.Equal(t, "storage: failed to ping: timeout", err.Error())
}
