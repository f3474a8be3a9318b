package service

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"repertoire/internal/platform/config"
	perr "repertoire/internal/platform/errors"
	"repertoire/internal/services/identify/domain"
)

// DefaultsKey names the metadata block merged into every sample
const DefaultsKey = "all"

// sampleKeys are the metadata keys every sample must end up with
type sampleKeys struct {
	Name    string `conf:"sample_name" validate:"required"`
	Subject string `conf:"subject" validate:"required"`
}

// ParseMetadata decodes a metadata document keyed by file name. Values of
// the "all" block fill keys a file entry leaves unset
func ParseMetadata(data []byte) (map[string]map[string]string, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfiguration, "metadata: invalid yaml")
	}
	defaults := raw[DefaultsKey]
	out := make(map[string]map[string]string, len(raw))
	for file, entry := range raw {
		if file == DefaultsKey {
			continue
		}
		merged := maps.Clone(defaults)
		if merged == nil {
			merged = map[string]string{}
		}
		for k, v := range entry {
			if v != "" {
				merged[k] = v
			}
		}
		if merged["sample_name"] == "" {
			merged["sample_name"] = sampleStem(file)
		}
		out[file] = merged
	}
	return out, nil
}

// SamplesFromDir pairs every metadata entry with its file under dir. Entries
// without a subject or without a file are configuration errors
func SamplesFromDir(dir, metadataPath string) ([]domain.Sample, error) {
	if metadataPath == "" {
		metadataPath = filepath.Join(dir, "metadata.yaml")
	}
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "metadata: read %s", metadataPath)
	}
	entries, err := ParseMetadata(data)
	if err != nil {
		return nil, err
	}

	files := slices.Sorted(maps.Keys(entries))
	out := make([]domain.Sample, 0, len(files))
	names := make(map[string]string, len(files))
	for _, file := range files {
		meta := entries[file]
		keys := sampleKeys{Name: meta["sample_name"], Subject: meta["subject"]}
		if err := config.Validate(keys); err != nil {
			return nil, perr.WithOp(err, "metadata "+file)
		}
		if prev, dup := names[keys.Name]; dup {
			return nil, perr.Configf("metadata: sample %q named by both %s and %s", keys.Name, prev, file)
		}
		names[keys.Name] = file

		path := filepath.Join(dir, file)
		if _, err := os.Stat(path); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "metadata: missing file for %s", file)
		}
		extra := maps.Clone(meta)
		delete(extra, "sample_name")
		delete(extra, "subject")
		out = append(out, domain.Sample{Name: keys.Name, Subject: keys.Subject, Path: path, Metadata: extra})
	}
	return out, nil
}

func sampleStem(file string) string {
	base := filepath.Base(file)
	for _, ext := range []string{".gz", ".fasta", ".fastq", ".fa"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
