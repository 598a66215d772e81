// ABOUTME: CSV export of the unified results table
// ABOUTME: Deterministic column order, safe overwrite and sudo ownership fixup

package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/2389/wifi-test/internal/store"
)

// ErrExists is returned when the target file already exists and
// overwriting was not requested.
var ErrExists = errors.New("output file already exists")

// columns is the fixed CSV header. The BSSID leads because it is the
// row key; everything else follows the table's column order.
var columns = []string{
	"bssid",
	"ssid",
	"frequency_mhz",
	"band",
	"signal_dbm",
	"channel",
	"security",
	"tool",
	"download_mbps",
	"upload_mbps",
	"ping_ms",
	"jitter_ms",
	"packet_loss_pct",
	"server",
	"isp",
	"result_url",
	"created_at",
}

// WriteCSV renders rows to w with a header line. Numeric fields use
// the shortest representation that round-trips; timestamps are UTC
// RFC 3339.
func WriteCSV(w io.Writer, rows []store.ResultRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.BSSID,
			row.SSID,
			formatFloat(row.Frequency),
			row.Band,
			formatFloat(row.Signal),
			strconv.Itoa(row.Channel),
			row.Security,
			row.Tool,
			formatFloat(row.DownloadMbps),
			formatFloat(row.UploadMbps),
			formatFloat(row.PingMs),
			formatFloat(row.JitterMs),
			formatFloat(row.PacketLoss),
			row.Server,
			row.ISP,
			row.ResultURL,
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %s: %w", row.BSSID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile exports rows to path. An existing file is only replaced
// when force is set.
func WriteFile(path string, rows []store.ResultRow, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FixOwnership hands the file back to the invoking user when the tool
// ran under sudo, so root does not end up owning the export. It is a
// no-op outside sudo.
func FixOwnership(path string) error {
	sudoUser := os.Getenv("SUDO_USER")
	if sudoUser == "" || os.Geteuid() != 0 {
		return nil
	}

	u, err := user.Lookup(sudoUser)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", sudoUser, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return err
	}

	return os.Chown(path, uid, gid)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
