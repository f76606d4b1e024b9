package conf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// SetupConfig 读取配置文件，文件不存在时写入默认配置
func SetupConfig(path string) (*Bootstrap, error) {
	bc := DefaultConfig()
	bc.ConfigPath = path

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := WriteConfig(&bc, path); err != nil {
			return nil, err
		}
		return &bc, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(b, &bc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return &bc, nil
}

// WriteConfig 将配置写回文件
func WriteConfig(bc *Bootstrap, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(bc); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
