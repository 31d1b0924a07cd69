package db

import (
	"os"
	"path/filepath"
	"testing"

	"factorydash.xyz/alert-engine/pkg/common"
	constant "factorydash.xyz/alert-engine/pkg/common"
)

func TestWithEnvPath(t *testing.T) {
	common.SetTestLoggerNop()

	if os.Getenv(constant.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}

	testPath := filepath.Join(t.TempDir(), "alerts-test.db")
	t.Setenv(constant.EnvKeyAlertDbPath, testPath)

	conn, err := Open(UseSqliteDialector())
	if err != nil {
		t.Fatalf("Expected sqlite file database to open, got %v", err)
	}
	sqlDB, _ := conn.DB()
	defer sqlDB.Close()

	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Errorf("Expected database file to be created at %s", testPath)
	}
	if !conn.Migrator().HasTable("notifications") {
		t.Error("Expected notifications table in file database")
	}
}
