package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/util"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

const artifactPrefix = "backups/"

// artifactJSON decodes document numbers as json.Number so integer fields are not widened to float64
var artifactJSON = sonic.Config{UseNumber: true}.Froze()

var gzipMagic = []byte{0x1f, 0x8b}

// newBackupID returns backup_<unix millis>_<random suffix>
func newBackupID(now time.Time) string {
	return "backup_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + util.GetRandomLowerString(8)
}

func artifactKey(id string, compressed bool) string {
	if compressed {
		return artifactPrefix + id + ".json.gz"
	}
	return artifactPrefix + id + ".json"
}

// encodeArtifact serializes the artifact, gzip compressed when asked
// encodeArtifact 序列化备份制品，按需 gzip 压缩
func encodeArtifact(a *domain.BackupArtifact, compress bool) ([]byte, error) {
	raw, err := sonic.Marshal(a)
	if err != nil {
		return nil, errors.Wrap(err, "encode artifact")
	}
	if !compress {
		return raw, nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip writer")
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, errors.Wrap(err, "compress artifact")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "compress artifact")
	}
	return buf.Bytes(), nil
}

// decodeArtifact accepts plain and gzip compressed artifacts
// decodeArtifact 解码普通或 gzip 压缩的备份制品
func decodeArtifact(data []byte) (*domain.BackupArtifact, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, code.ErrorBackupInvalidArtifact.WithDetails(err.Error())
		}
		defer zr.Close()
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, code.ErrorBackupInvalidArtifact.WithDetails(err.Error())
		}
	}

	var a domain.BackupArtifact
	if err := artifactJSON.Unmarshal(data, &a); err != nil {
		return nil, code.ErrorBackupInvalidArtifact.WithDetails(err.Error())
	}
	return &a, nil
}

// validateArtifact checks the structure a restore relies on
// validateArtifact 校验恢复所依赖的制品结构
func validateArtifact(a *domain.BackupArtifact) error {
	switch {
	case a.ID == "":
		return code.ErrorBackupInvalidArtifact.WithDetails("missing id")
	case a.Timestamp.IsZero():
		return code.ErrorBackupInvalidArtifact.WithDetails("missing timestamp")
	case a.Collections == nil:
		return code.ErrorBackupInvalidArtifact.WithDetails("missing collections")
	}
	for name, c := range a.Collections {
		if c == nil {
			return code.ErrorBackupInvalidArtifact.WithDetails("collection " + name + " is empty")
		}
	}
	return checkArtifactVersion(a.Metadata.Version)
}

// checkArtifactVersion rejects artifacts written by an incompatible major format version,
// artifacts without a version predate versioning and are accepted
func checkArtifactVersion(version string) error {
	if version == "" {
		return nil
	}
	v := "v" + version
	if !semver.IsValid(v) {
		return code.ErrorBackupVersion.WithDetails(version)
	}
	if semver.Major(v) != semver.Major("v"+domain.ArtifactFormatVersion) {
		return code.ErrorBackupVersion.WithDetails(version)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// documentsSize is the serialized size of a document list
func documentsSize(docs []domain.Document) (int64, error) {
	b, err := sonic.Marshal(docs)
	if err != nil {
		return 0, errors.Wrap(err, "measure documents")
	}
	return int64(len(b)), nil
}
