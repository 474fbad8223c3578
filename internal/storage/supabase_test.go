package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeObjectClient struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []string
	err     error
}

func (f *fakeObjectClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestUploadFile(t *testing.T) {
	client := &fakeObjectClient{}
	st := NewSupabaseStorage(client, "avatars", "https://cdn.example.com/storage/v1/object/public/")

	key, err := st.UploadFile(context.Background(), "user-1/abc.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	require.Equal(t, "user-1/abc.png", key)
	require.Len(t, client.puts, 1)
	require.Equal(t, "avatars", aws.ToString(client.puts[0].Bucket))
	require.Equal(t, "image/png", aws.ToString(client.puts[0].ContentType))
	require.Equal(t, "png", client.bodies[0])
}

func TestUploadFileError(t *testing.T) {
	st := NewSupabaseStorage(&fakeObjectClient{err: errors.New("boom")}, "avatars", "https://cdn.example.com")

	_, err := st.UploadFile(context.Background(), "k", strings.NewReader(""), 0, "image/png")
	require.ErrorContains(t, err, "boom")
}

func TestPublicURLRoundTrip(t *testing.T) {
	st := NewSupabaseStorage(&fakeObjectClient{}, "avatars", "https://cdn.example.com/public/")

	url := st.PublicURL("user-1/abc.webp")
	require.Equal(t, "https://cdn.example.com/public/avatars/user-1/abc.webp", url)

	key, ok := st.KeyFromURL(url)
	require.True(t, ok)
	require.Equal(t, "user-1/abc.webp", key)

	_, ok = st.KeyFromURL("https://elsewhere.example.com/a.png")
	require.False(t, ok)
}
