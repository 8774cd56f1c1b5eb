package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type stubPresign struct {
	gotGetKey string
	gotPutKey string
	err       error
}

func (s *stubPresign) PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.gotGetKey = *input.Key
	return &v4.PresignedHTTPRequest{URL: "https://cdn.example.com/" + *input.Key + "?sig=abc"}, nil
}

func (s *stubPresign) PresignPutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.gotPutKey = *input.Key
	return &v4.PresignedHTTPRequest{URL: "https://cdn.example.com/" + *input.Key + "?sig=put"}, nil
}

func TestNewIncompleteConfig(t *testing.T) {
	if c := New(Config{Bucket: "materials"}); c != nil {
		t.Error("client should be nil without credentials")
	}
	if c := New(Config{AccessKey: "k", SecretKey: "s"}); c != nil {
		t.Error("client should be nil without a bucket")
	}
}

func TestNewComplete(t *testing.T) {
	c := New(Config{
		Endpoint:  "https://s3.example.com",
		Bucket:    "materials",
		Region:    "auto",
		AccessKey: "k",
		SecretKey: "s",
	})
	if c == nil {
		t.Fatal("client should not be nil")
	}
}

func TestSignedDownloadURL(t *testing.T) {
	stub := &stubPresign{}
	c := &Client{bucket: "materials", presign: stub}

	url, err := c.SignedDownloadURL(context.Background(), "guia-locacao.pdf", 600*time.Second)
	if err != nil {
		t.Fatalf("SignedDownloadURL() error = %v", err)
	}
	if url != "https://cdn.example.com/guia-locacao.pdf?sig=abc" {
		t.Errorf("url = %q", url)
	}
	if stub.gotGetKey != "guia-locacao.pdf" {
		t.Errorf("presigned key = %q", stub.gotGetKey)
	}
}

func TestSignedDownloadURLError(t *testing.T) {
	stub := &stubPresign{err: errors.New("boom")}
	c := &Client{bucket: "materials", presign: stub}

	if _, err := c.SignedDownloadURL(context.Background(), "x.pdf", time.Minute); err == nil {
		t.Error("expected error")
	}
}

func TestSignedUploadURL(t *testing.T) {
	stub := &stubPresign{}
	c := &Client{bucket: "materials", presign: stub}

	url, err := c.SignedUploadURL(context.Background(), "novo.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("SignedUploadURL() error = %v", err)
	}
	if url == "" || stub.gotPutKey != "novo.pdf" {
		t.Errorf("url = %q, key = %q", url, stub.gotPutKey)
	}
}
