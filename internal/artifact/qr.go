package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// QRGenerator writes a scannable PNG reference code per completed
// transaction. It is a best-effort collaborator: its output is never read
// back by the allocation engine.
type QRGenerator struct {
	dir      string
	shareURL string
}

func NewQRGenerator(dir, shareURL string) *QRGenerator {
	return &QRGenerator{
		dir:      dir,
		shareURL: shareURL,
	}
}

func (g *QRGenerator) Generate(_ context.Context, transactionID string) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("os.MkdirAll -> %w", err)
	}

	path := filepath.Join(g.dir, transactionID+".png")
	content := fmt.Sprintf("%s/%s", g.shareURL, transactionID)
	if err := qrcode.WriteFile(content, qrcode.Medium, 256, path); err != nil {
		return "", fmt.Errorf("qrcode.WriteFile -> %w", err)
	}

	return path, nil
}
