package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger/internal/pkg/errs"
)

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		mime       string
		imagesOnly bool
		wantErr    bool
	}{
		{name: "png", file: "me.PNG", mime: "image/png"},
		{name: "jpeg alias", file: "me.jpeg", mime: "image/jpeg"},
		{name: "pdf attachment", file: "doc.pdf", mime: "application/pdf"},
		{name: "pdf as avatar", file: "doc.pdf", mime: "application/pdf", imagesOnly: true, wantErr: true},
		{name: "ext mismatch", file: "me.png", mime: "image/gif", wantErr: true},
		{name: "no ext", file: "me", mime: "image/png", wantErr: true},
		{name: "unknown mime", file: "a.exe", mime: "application/x-msdownload", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileType(tt.file, tt.mime, tt.imagesOnly)
			if tt.wantErr {
				require.NotNil(t, err)
				require.Equal(t, errs.ErrFileTypeInvalid, err.Code)
				return
			}
			require.Nil(t, err)
		})
	}
}

func TestValidateFileSize(t *testing.T) {
	req := require.New(t)

	req.Nil(ValidateFileSize(1024))
	req.Equal(errs.ErrInvalidParams, ValidateFileSize(0).Code)
	req.Equal(errs.ErrFileSizeTooLarge, ValidateFileSize(MaxUploadSize+1).Code)
}

func TestObjectKeys(t *testing.T) {
	req := require.New(t)

	key := NewObjectKey(AvatarScope("u1"), "Me.JPG")
	req.True(strings.HasPrefix(key, "avatars/u1/"))
	req.True(strings.HasSuffix(key, ".jpg"))
	req.True(KeyInScope(key, AvatarScope("u1")))

	req.False(KeyInScope(key, AvatarScope("u2")))
	req.False(KeyInScope("avatars/u1/../u2/x.png", AvatarScope("u1")))
	req.False(KeyInScope("avatars/u1/nested/x.png", AvatarScope("u1")))

	req.Equal("https://cdn.example.com/"+key, PublicURL("https://cdn.example.com/", key))
	req.Equal(key, KeyFromPublicURL("https://cdn.example.com", PublicURL("https://cdn.example.com", key)))
	req.Equal("", KeyFromPublicURL("https://cdn.example.com", "https://elsewhere/x.png"))
	req.Equal(key, PublicURL("", key))
}
