package main

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/config"
	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/MarcoPoloResearchLab/portfolio/internal/mail"
	"go.uber.org/zap"
)

func newBlobStore(ctx context.Context, appConfig config.AppConfig, idProvider ids.Provider) (blob.Store, error) {
	switch blob.Driver(appConfig.Blob.Driver) {
	case blob.DriverFilesystem:
		return blob.NewFilesystem(blob.FilesystemConfig{
			Root:          appConfig.Blob.FSRoot,
			PublicBaseURL: appConfig.Blob.PublicBaseURL,
			IDProvider:    idProvider,
		})
	case blob.DriverS3:
		return blob.NewS3(ctx, blob.S3Config{
			Region:          appConfig.Blob.S3Region,
			Bucket:          appConfig.Blob.S3Bucket,
			Endpoint:        appConfig.Blob.S3Endpoint,
			AccessKeyID:     appConfig.Blob.S3AccessKeyID,
			SecretAccessKey: appConfig.Blob.S3SecretKey,
			PathStyle:       appConfig.Blob.S3UsePathStyle,
			PublicBaseURL:   appConfig.Blob.S3PublicBaseURL,
			IDProvider:      idProvider,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", appConfig.Blob.Driver)
	}
}

func newMailer(appConfig config.AppConfig, logger *zap.Logger) (mail.Mailer, error) {
	if appConfig.SMTP.Host == "" {
		logger.Warn("smtp host not configured; outgoing mail is logged only")
		return mail.NewLogMailer(logger), nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     appConfig.SMTP.Host,
		Port:     appConfig.SMTP.Port,
		Username: appConfig.SMTP.Username,
		Password: appConfig.SMTP.Password,
		From:     appConfig.SMTP.From,
	})
}
