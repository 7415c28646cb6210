package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/trendnav/knn-navigator/pkg/config"
)

// WriteBestConfigJSON writes a full runnable configuration to path. The
// optimizer uses this to persist the winning parameter set as a config that
// the backtest command accepts directly.
func WriteBestConfigJSON(cfg *config.Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// PrintBestConfigJSON prints a configuration as JSON to the console.
func PrintBestConfigJSON(cfg *config.Config) {
	data, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Println(string(data))
}

// ExtractIntervalFromPath extracts the interval from a data file path.
// Example: "data/bybit/linear/BTCUSDT/5m/candles.csv" -> "5m"
func ExtractIntervalFromPath(dataPath string) string {
	if dataPath == "" {
		return ""
	}

	dataPath = filepath.ToSlash(dataPath)
	parts := strings.Split(dataPath, "/")

	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if len(part) < 2 {
			continue
		}
		lastChar := part[len(part)-1]
		if lastChar != 'm' && lastChar != 'h' && lastChar != 'd' {
			continue
		}
		if _, err := strconv.Atoi(part[:len(part)-1]); err == nil {
			return part
		}
	}

	return ""
}
