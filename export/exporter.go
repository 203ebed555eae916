// Package export renders archived results to CSV and optionally uploads the
// file to Google Drive for sharing outside the spreadsheet.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"productradar/models"
)

var csvHeader = []string{
	"product_name", "category", "product_url", "scraped_at",
	"video_link", "impressions", "script", "hook",
	"audience_age", "country", "first_seen",
}

// WriteCSV flattens results to one row per video record.
func WriteCSV(path string, results []models.ProductResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %v", err)
	}
	for _, result := range results {
		for _, video := range result.Videos {
			row := []string{
				result.Product.Name,
				result.Product.Category,
				result.Product.URL,
				result.Product.ScrapedAt.Format("2006-01-02"),
				video.Link,
				video.ImpressionsFmt,
				video.Script,
				video.Hook,
				video.AudienceAge,
				video.Country,
				video.FirstSeen,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %v", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

// DriveUploader pushes exported files to Google Drive and makes them
// link-readable.
type DriveUploader struct {
	svc    *drive.Service
	logger *zap.Logger
}

func NewDriveUploader(ctx context.Context, credentialsFile string, logger *zap.Logger) (*DriveUploader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %v", err)
	}
	return &DriveUploader{svc: svc, logger: logger}, nil
}

// Upload sends the file and returns a shareable link.
func (u *DriveUploader) Upload(ctx context.Context, path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	file, err := u.svc.Files.Create(&drive.File{Name: name, MimeType: "text/csv"}).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %v", name, err)
	}

	_, err = u.svc.Permissions.Create(file.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to share %s: %v", name, err)
	}

	link := fmt.Sprintf("https://drive.google.com/file/d/%s/view", file.Id)
	u.logger.Info("export uploaded", zap.String("file", name), zap.String("link", link))
	return link, nil
}
