package db

import (
	"os"

	"go.uber.org/zap"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func zapNop() *zap.Logger { return zap.NewNop() }
