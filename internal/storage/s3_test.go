// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import "testing"

func TestNewUnconfigured(t *testing.T) {
	tests := []struct {
		name                                   string
		endpoint, accessKey, secretKey, bucket string
	}{
		{"no endpoint", "", "key", "secret", "bucket"},
		{"no access key", "http://s3", "", "secret", "bucket"},
		{"no secret", "http://s3", "key", "", "bucket"},
		{"no bucket", "http://s3", "key", "secret", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.endpoint, "", tt.accessKey, tt.secretKey, tt.bucket, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c != nil {
				t.Error("expected nil client when unconfigured")
			}
		})
	}
}

func TestFileURL(t *testing.T) {
	c, err := New("http://minio:9000/", "eu-central", "key", "secret", "snapshots", "")
	if err != nil || c == nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := c.FileURL("catalogs/services.json"), "http://minio:9000/snapshots/catalogs/services.json"; got != want {
		t.Errorf("FileURL: got %q, want %q", got, want)
	}
	if c.Bucket() != "snapshots" {
		t.Errorf("Bucket: got %q", c.Bucket())
	}

	cdn, _ := New("http://minio:9000", "", "key", "secret", "snapshots", "https://cdn.example.com/")
	if got, want := cdn.FileURL("a.json"), "https://cdn.example.com/a.json"; got != want {
		t.Errorf("FileURL with public URL: got %q, want %q", got, want)
	}
}

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("services"); got != "catalogs/services.json" {
		t.Errorf("SnapshotKey: got %q", got)
	}
}
