package avatar

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formWithFiles(names ...string) *multipart.Form {
	form := &multipart.Form{File: make(map[string][]*multipart.FileHeader)}
	for _, name := range names {
		form.File[name] = []*multipart.FileHeader{{Filename: name + ".png"}}
	}

	return form
}

func TestFindUploadFile(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   string
	}{
		{name: "avatar field", fields: []string{"avatar"}, want: "avatar.png"},
		{name: "profile picture field", fields: []string{"profile_picture"}, want: "profile_picture.png"},
		{name: "photo upload field", fields: []string{"user_photo"}, want: "user_photo.png"},
		{name: "generic image field", fields: []string{"item_image_1"}, want: "item_image_1.png"},
		{name: "case insensitive", fields: []string{"Avatar"}, want: "Avatar.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := findUploadFile(formWithFiles(tt.fields...))

			require.NotNil(t, header)
			assert.Equal(t, tt.want, header.Filename)
		})
	}
}

func TestFindUploadFile_NoMatch(t *testing.T) {
	assert.Nil(t, findUploadFile(formWithFiles("attachment", "document")))
	assert.Nil(t, findUploadFile(nil))
}

func TestFindUploadFile_PrefersAvatarOverGenericImage(t *testing.T) {
	header := findUploadFile(formWithFiles("product_image", "avatar"))

	require.NotNil(t, header)
	assert.Equal(t, "avatar.png", header.Filename)
}

func TestFindUploadFile_DeterministicWithinPattern(t *testing.T) {
	// Two fields match the same pattern; the sorted field order decides,
	// not map iteration order.
	for i := 0; i < 20; i++ {
		header := findUploadFile(formWithFiles("image_b", "image_a", "image_c"))

		require.NotNil(t, header)
		assert.Equal(t, "image_a.png", header.Filename)
	}
}
