// Package archive ships zone snapshots to S3-compatible storage, with an
// optional cold copy in AWS Glacier. The sync pipeline only ever writes
// snapshots; nothing in this system reads one back.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/glacier"

	"subsync/internal/config"
	"subsync/internal/dnssync"
	"subsync/internal/logging"
)

const (
	objectPrefix             = "snapshots"
	defaultCapacityThreshold = 95.0
	capacityQueryTimeout     = 15 * time.Second
)

// Store uploads snapshots to a Minio bucket and, when a vault is configured,
// AWS Glacier. Remote clients are dialed lazily on first use.
type Store struct {
	cfg config.ArchiveConfig
	log logging.Logger

	minioClient   *minio.Client
	adminClient   *madmin.AdminClient
	glacierClient *glacier.Client
}

// New builds a Store from archive configuration.
func New(cfg config.ArchiveConfig, log logging.Logger) (*Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("archive storage is not configured")
	}
	if log == nil {
		log = logging.NewNop(slog.LevelInfo)
	}
	return &Store{cfg: cfg, log: log}, nil
}

// GlacierEnabled reports whether a Glacier vault is configured alongside the
// bucket.
func (s *Store) GlacierEnabled() bool {
	return s.cfg.GlacierEnabled()
}

// Archive stores the snapshot in the bucket and, when a vault is configured,
// Glacier as well. The bucket key is returned on success.
func (s *Store) Archive(ctx context.Context, snapshot *dnssync.Snapshot, format string) (string, error) {
	key, err := s.UploadSnapshot(ctx, snapshot, format)
	if err != nil {
		return "", err
	}
	if s.cfg.GlacierEnabled() {
		if err := s.UploadToGlacier(ctx, snapshot, format); err != nil {
			return "", err
		}
	}
	return key, nil
}

// UploadSnapshot encodes the snapshot and writes it to the bucket, refusing
// when cluster usage is past the capacity threshold. Returns the object key.
func (s *Store) UploadSnapshot(ctx context.Context, snapshot *dnssync.Snapshot, format string) (string, error) {
	if err := s.initMinioClient(ctx); err != nil {
		return "", err
	}
	if err := s.ensureCapacity(ctx); err != nil {
		return "", err
	}

	// Encoding validates the snapshot and stamps its export time, which the
	// object key embeds.
	content, err := dnssync.EncodeSnapshot(snapshot, format, true)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := objectKey(s.cfg.BucketPath, snapshot.RootDomain, snapshot.Exported, format)
	_, err = s.minioClient.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
			ContentType: contentType(format),
		})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	s.log.Infof("archived snapshot to %s (%d bytes)", key, len(content))
	return key, nil
}

// UploadToGlacier writes an encoded snapshot archive to the configured vault.
func (s *Store) UploadToGlacier(ctx context.Context, snapshot *dnssync.Snapshot, format string) error {
	if err := s.initGlacierClient(ctx); err != nil {
		return err
	}

	content, err := dnssync.EncodeSnapshot(snapshot, format, true)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	description := fmt.Sprintf("DNS snapshot: %s (%s)",
		snapshot.RootDomain, snapshot.Exported.Format("20060102-150405"))
	out, err := s.glacierClient.UploadArchive(ctx, &glacier.UploadArchiveInput{
		AccountId:          aws.String(s.accountID()),
		VaultName:          aws.String(s.cfg.GlacierVault),
		ArchiveDescription: aws.String(description),
		Body:               bytes.NewReader(content),
	})
	if err != nil {
		return fmt.Errorf("upload to glacier: %w", err)
	}

	if out.ArchiveId != nil {
		s.log.Infof("archived snapshot to glacier vault %s (archive %s)",
			s.cfg.GlacierVault, shortID(*out.ArchiveId))
	}
	return nil
}

// TestConnection verifies the bucket accepts writes by round-tripping a probe
// object.
func (s *Store) TestConnection(ctx context.Context) error {
	if err := s.initMinioClient(ctx); err != nil {
		return err
	}

	probe := fmt.Sprintf(".subsync-probe-%d.txt", time.Now().Unix())
	if s.cfg.BucketPath != "" {
		probe = filepath.Join(s.cfg.BucketPath, probe)
	}
	payload := []byte("subsync archive connection test")

	_, err := s.minioClient.PutObject(ctx, s.cfg.Bucket, probe,
		bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
			ContentType: "text/plain",
		})
	if err != nil {
		return fmt.Errorf("write probe object: %w", err)
	}

	object, err := s.minioClient.GetObject(ctx, s.cfg.Bucket, probe, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("read probe object: %w", err)
	}
	defer object.Close()
	got, err := io.ReadAll(object)
	if err != nil {
		return fmt.Errorf("read probe object: %w", err)
	}
	if !bytes.Equal(got, payload) {
		return fmt.Errorf("probe object content mismatch")
	}

	if err := s.minioClient.RemoveObject(ctx, s.cfg.Bucket, probe, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete probe object: %w", err)
	}
	return nil
}

// TestGlacierConnection verifies the vault accepts archives and cleans up
// after itself.
func (s *Store) TestGlacierConnection(ctx context.Context) error {
	if err := s.initGlacierClient(ctx); err != nil {
		return err
	}

	payload := []byte("subsync glacier connection test")
	out, err := s.glacierClient.UploadArchive(ctx, &glacier.UploadArchiveInput{
		AccountId:          aws.String(s.accountID()),
		VaultName:          aws.String(s.cfg.GlacierVault),
		ArchiveDescription: aws.String(fmt.Sprintf("subsync probe %d", time.Now().Unix())),
		Body:               bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("upload probe archive: %w", err)
	}

	if out.ArchiveId != nil {
		if _, err := s.glacierClient.DeleteArchive(ctx, &glacier.DeleteArchiveInput{
			AccountId: aws.String(s.accountID()),
			VaultName: aws.String(s.cfg.GlacierVault),
			ArchiveId: out.ArchiveId,
		}); err != nil {
			return fmt.Errorf("delete probe archive: %w", err)
		}
	}
	return nil
}

func (s *Store) initMinioClient(ctx context.Context) error {
	if s.minioClient != nil {
		return nil
	}

	tr := &http.Transport{
		IdleConnTimeout:     5 * time.Minute,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
	}

	client, err := minio.New(s.cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		Secure:    s.cfg.UseSSL,
		Transport: tr,
	})
	if err != nil {
		return fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.cfg.Bucket)
	}

	s.minioClient = client
	return nil
}

func (s *Store) initAdminClient() error {
	if s.adminClient != nil {
		return nil
	}
	client, err := madmin.New(s.cfg.Endpoint, s.cfg.AccessKey, s.cfg.SecretKey, s.cfg.UseSSL)
	if err != nil {
		return fmt.Errorf("create minio admin client: %w", err)
	}
	s.adminClient = client
	return nil
}

// ensureCapacity refuses uploads once cluster usage crosses the threshold, so
// snapshot archival never fills the storage that other tenants share.
func (s *Store) ensureCapacity(ctx context.Context) error {
	threshold := s.cfg.CapacityThreshold
	if threshold <= 0 {
		threshold = defaultCapacityThreshold
	}
	if err := s.initAdminClient(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, capacityQueryTimeout)
	defer cancel()
	info, err := s.adminClient.StorageInfo(ctx)
	if err != nil {
		return fmt.Errorf("query storage info: %w", err)
	}

	usage, err := usagePercent(info.Disks)
	if err != nil {
		return err
	}
	if usage >= threshold {
		return fmt.Errorf("storage usage %.1f%% exceeds %.1f%% threshold; free space before archiving", usage, threshold)
	}
	s.log.Debugf("capacity check passed: %.1f%% used (threshold %.1f%%)", usage, threshold)
	return nil
}

func (s *Store) initGlacierClient(ctx context.Context) error {
	if s.glacierClient != nil {
		return nil
	}
	if !s.cfg.GlacierEnabled() {
		return fmt.Errorf("glacier vault is not configured")
	}

	tr := &http.Transport{
		IdleConnTimeout:     5 * time.Minute,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.cfg.GlacierRegion),
		awsconfig.WithCredentialsProvider(awscredentials.NewStaticCredentialsProvider(
			s.cfg.AWSAccessKey,
			s.cfg.AWSSecretKey,
			"",
		)),
		awsconfig.WithHTTPClient(&http.Client{Transport: tr}),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	client := glacier.NewFromConfig(cfg)
	_, err = client.DescribeVault(ctx, &glacier.DescribeVaultInput{
		AccountId: aws.String(s.accountID()),
		VaultName: aws.String(s.cfg.GlacierVault),
	})
	if err != nil {
		return fmt.Errorf("vault %s is not accessible: %w", s.cfg.GlacierVault, err)
	}

	s.glacierClient = client
	return nil
}

func (s *Store) accountID() string {
	if s.cfg.GlacierAccountID == "" {
		return "-"
	}
	return s.cfg.GlacierAccountID
}

func usagePercent(disks []madmin.Disk) (float64, error) {
	var total, used uint64
	for _, disk := range disks {
		total += disk.TotalSpace
		used += disk.UsedSpace
	}
	if total == 0 {
		return 0, fmt.Errorf("storage reported zero total capacity")
	}
	return (float64(used) / float64(total)) * 100, nil
}

// Object keys look like snapshots/{root}-{20060102-150405}.{json|yaml},
// under the bucket path prefix when one is set.
func objectKey(bucketPath, rootDomain string, exported time.Time, format string) string {
	key := fmt.Sprintf("%s/%s-%s%s",
		objectPrefix, rootDomain, exported.Format("20060102-150405"), extension(format))
	if bucketPath != "" {
		key = filepath.Join(bucketPath, key)
	}
	return key
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return ".yaml"
	default:
		return ".json"
	}
}

func contentType(format string) string {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return "application/yaml"
	default:
		return "application/json"
	}
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}
