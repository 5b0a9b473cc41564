package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := E(NotFound, "get post", errors.New("no rows"))
	wrapped := fmt.Errorf("load editor: %w", base)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Permission))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
}

func TestENilStaysNil(t *testing.T) {
	assert.NoError(t, E(Network, "fetch", nil))
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", Invalid("title", "title is required"), "Title is required."},
		{"validation field only", &Error{Kind: Validation, Field: "content"}, "Content is required."},
		{"permission", E(Permission, "update", errors.New("denied")), "Save failed. Your account is not allowed to change this post."},
		{"not found", E(NotFound, "update", errors.New("gone")), "Save failed. The post no longer exists."},
		{"timeout", E(Timeout, "fetch", errors.New("deadline")), "Request timed out. The blog server may be slow or unreachable."},
		{"status", Status("fetch", 503), "Save failed: API returned 503."},
		{"network", E(Network, "fetch", errors.New("dial")), "Could not reach the blog server. Check the network connection and the API URL."},
		{"unclassified", errors.New("boom"), "Save failed. Check the server logs for details."},
		{"permission with cause", Explain(Permission, "upload", "media storage denied the write", errors.New("EACCES")), "Save failed. Media storage denied the write."},
		{"unknown with cause", Explain(Unknown, "upload", "could not write the image to media storage", errors.New("ENOSPC")), "Save failed. Could not write the image to media storage."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message("Save", tt.err))
		})
	}
}

func TestFieldOf(t *testing.T) {
	assert.Equal(t, "title", FieldOf(fmt.Errorf("save: %w", Invalid("title", "required"))))
	assert.Equal(t, "", FieldOf(errors.New("x")))
}

func TestExplainNilStaysNil(t *testing.T) {
	assert.NoError(t, Explain(Permission, "upload", "denied", nil))
}
