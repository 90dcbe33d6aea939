package component

import (
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/c360/flowgate/natsclient"
	"github.com/nats-io/nats.go"
)

// sharedNATSClient backs the NATS-dependent tests in this package. It is
// nil unless INTEGRATION_TESTS is set; unit tests never touch it.
var sharedNATSClient *nats.Conn

func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		fmt.Println("Running unit tests only. Set INTEGRATION_TESTS=1 for NATS-backed tests.")
		os.Exit(m.Run())
	}

	// One container for the whole package run.
	testClient, err := natsclient.NewSharedTestClient()
	if err != nil {
		log.Fatalf("Failed to create shared test client: %v", err)
	}
	sharedNATSClient = testClient.Client.GetConnection()

	code := m.Run()

	testClient.Terminate()
	os.Exit(code)
}

// getSharedNATSClient hands tests the package-wide NATS connection,
// skipping when integration tests are disabled.
func getSharedNATSClient(t *testing.T) *nats.Conn {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION_TESTS=1 to run.")
	}
	if sharedNATSClient == nil {
		t.Fatal("Shared NATS client not initialized - TestMain should have created it")
	}
	return sharedNATSClient
}
