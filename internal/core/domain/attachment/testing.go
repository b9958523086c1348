package attachment

import (
	"context"
	"fmt"
	"sync"
)

type FakeBlobStorage struct {
	UploadError   error
	DownloadError error
	DeleteError   error
	UploadCalls   int
	DeleteCalls   []BlobRef
	blobs         map[BlobRef][]byte
	seq           int
	lock          sync.Mutex
}

func NewFakeBlobStorage() *FakeBlobStorage {
	return &FakeBlobStorage{blobs: make(map[BlobRef][]byte)}
}

func (s *FakeBlobStorage) Upload(ctx context.Context, name string, content []byte) (BlobRef, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.UploadCalls++
	if s.UploadError != nil {
		return "", s.UploadError
	}
	s.seq++
	ref := BlobRef(fmt.Sprintf("blob-%d-%s", s.seq, name))
	s.blobs[ref] = append([]byte(nil), content...)
	return ref, nil
}

func (s *FakeBlobStorage) Download(ctx context.Context, ref BlobRef) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.DownloadError != nil {
		return nil, s.DownloadError
	}
	content, ok := s.blobs[ref]
	if !ok {
		return nil, ErrBlobDoesNotExist
	}
	return append([]byte(nil), content...), nil
}

func (s *FakeBlobStorage) Delete(ctx context.Context, ref BlobRef) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.DeleteCalls = append(s.DeleteCalls, ref)
	if s.DeleteError != nil {
		return s.DeleteError
	}
	delete(s.blobs, ref)
	return nil
}

func (s *FakeBlobStorage) Has(ref BlobRef) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.blobs[ref]
	return ok
}

func (s *FakeBlobStorage) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.blobs)
}

func (s *FakeBlobStorage) Uploads() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.UploadCalls
}
