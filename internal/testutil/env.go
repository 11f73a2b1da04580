package testutil

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"testing"
	"time"
)

// StoreTestConfig holds DefraDB container configuration without importing
// the docstore package. This breaks the import cycle between testutil and
// docstore.
type StoreTestConfig struct {
	ContainerName string
	HostPort      string
	DataPath      string
	Labels        map[string]string
	Logger        *slog.Logger
}

// NewStoreConfig creates configuration for a test document store with a
// unique container name and free port.
func NewStoreConfig(t *testing.T) StoreTestConfig {
	t.Helper()

	// Register Docker cleanup for this test
	_ = DockerClient(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	port, err := FindFreePort()
	if err != nil {
		t.Fatalf("failed to find free port for DefraDB: %v", err)
	}

	return StoreTestConfig{
		ContainerName: UniqueContainerName(t, "defra"),
		HostPort:      port,
		DataPath:      t.TempDir(),
		Labels:        ContainerLabels(t),
		Logger:        logger,
	}
}

// URL returns the document store URL for the given config.
func (c StoreTestConfig) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%s", c.HostPort)
}

// WaitForStore polls the health endpoint until the document store responds.
func WaitForStore(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/health-check")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	return fmt.Errorf("store not ready after %v", timeout)
}

// HTTPClient returns an HTTP client for making requests.
func HTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// FindFreePort finds an available TCP port and returns it as a string.
func FindFreePort() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer listener.Close()
	return fmt.Sprintf("%d", listener.Addr().(*net.TCPAddr).Port), nil
}
