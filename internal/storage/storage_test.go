package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestDirStorePut(t *testing.T) {
	root := t.TempDir()
	store := NewDirStore(root)

	require.NoError(t, store.Put(context.Background(), "batch/o10_c3_s2_instance_0.dat", []byte("O = [0]; ")))

	data, err := os.ReadFile(filepath.Join(root, "batch", "o10_c3_s2_instance_0.dat"))
	require.NoError(t, err)
	assert.Equal(t, "O = [0]; ", string(data))

	assert.Error(t, store.Put(context.Background(), "../escape.dat", nil))
}

func TestDirStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewDirStore(t.TempDir()).Put(ctx, "a.dat", nil), context.Canceled)
}

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	store := newS3Store(fake, "bench", "orasp/run-1")

	require.NoError(t, store.Put(context.Background(), "o1_c1_s1_instance_0.json", []byte("{}")))

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "bench", aws.ToString(in.Bucket))
	assert.Equal(t, "orasp/run-1/o1_c1_s1_instance_0.json", aws.ToString(in.Key))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, "{}", string(fake.bodies[0]))
}

func TestS3StoreWrapsErrors(t *testing.T) {
	store := newS3Store(&fakeS3{err: errors.New("denied")}, "bench", "")
	err := store.Put(context.Background(), "a.dat", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bench/a.dat")
}

func TestMultiStoreWritesEverywhere(t *testing.T) {
	fake := &fakeS3{}
	root := t.TempDir()
	multi := MultiStore{NewDirStore(root), newS3Store(fake, "b", "")}

	require.NoError(t, multi.Put(context.Background(), "x.yaml", []byte("a: 1\n")))
	assert.FileExists(t, filepath.Join(root, "x.yaml"))
	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "application/yaml", aws.ToString(fake.inputs[0].ContentType))
}
