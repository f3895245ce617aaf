//go:build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

var (
	shared     *MongoDBContainer
	sharedErr  error
	sharedOnce sync.Once

	dbSeq atomic.Uint64
)

// GetSharedMongoDB starts the package-wide replica set on first use.
func GetSharedMongoDB(ctx context.Context) (*MongoDBContainer, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = SetupMongoDB(ctx)
	})
	return shared, sharedErr
}

// SetupTestMainWithMongoDB runs m against one shared container and terminates it after.
//
//	func TestMain(m *testing.M) {
//		os.Exit(testutil.SetupTestMainWithMongoDB(context.Background(), m))
//	}
func SetupTestMainWithMongoDB(ctx context.Context, m *testing.M) int {
	if _, err := GetSharedMongoDB(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mongodb container: %v\n", err)
		return 1
	}

	code := m.Run()

	if err := shared.Cleanup(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mongodb container cleanup: %v\n", err)
	}
	return code
}

// GetSharedContainerURI returns the connection string of the shared container. It panics
// when called outside SetupTestMainWithMongoDB.
func GetSharedContainerURI() string {
	if shared == nil {
		panic("testutil: shared MongoDB container not started")
	}
	return shared.URI
}

// SanitizeDBName derives a database name from a test name. Each call returns a new name
// so subtests never share collections.
func SanitizeDBName(testName string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.', ' ', '"', '$', '*', '<', '>', ':', '|', '?':
			return '_'
		}
		return r
	}, testName)

	// MongoDB caps database names at 63 bytes.
	if len(name) > 48 {
		name = name[:48]
	}
	return fmt.Sprintf("%s_%d_%d", name, os.Getpid()%10000, dbSeq.Add(1))
}
