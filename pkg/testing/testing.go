package testing

import (
	"os"
	"path"
	"runtime"
)

const testLogDirEnv = "ALERT_LOG_DIR"

func init() {
	// blank-import from any *_test.go so every package test runs from the
	// project root and resolves testdata/ the same way:
	//
	//   import (
	//     _ "factorydash.xyz/alert-engine/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)
	root := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(root); err != nil {
		panic(err)
	}

	// keep test log files out of the working tree
	if _, found := os.LookupEnv(testLogDirEnv); !found {
		_ = os.Setenv(testLogDirEnv, path.Join(os.TempDir(), "alert-engine-test-logs"))
	}
}
