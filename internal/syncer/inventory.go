package syncer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/javi11/gribfetch/internal/inventory"
	"github.com/spf13/afero"
)

// FetchInventory loads and parses an inventory. location is either an
// http(s) URL or a path on fs.
func FetchInventory(ctx context.Context, client *http.Client, fs afero.Fs, location string) (inventory.Inventory, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		f, err := fs.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open inventory: %w", err)
		}
		defer f.Close()

		return inventory.ParseReader(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build inventory request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch inventory %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch inventory %s: HTTP %d", location, resp.StatusCode)
	}

	return inventory.ParseReader(resp.Body)
}
