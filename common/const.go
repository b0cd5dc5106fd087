package common

import (
	"fmt"
	"strings"
)

// BookFormat is the e-book file type requested for download.
type BookFormat string

const (
	FormatPDF  BookFormat = "pdf"
	FormatEPUB BookFormat = "epub"
)

// UploadTarget names the remote storage a downloaded book is copied to.
type UploadTarget string

const (
	TargetDropbox UploadTarget = "dropbox"
	TargetFTP     UploadTarget = "ftp"
	TargetSFTP    UploadTarget = "sftp"
)

// NotifyChannel names the transport used to announce the free title.
type NotifyChannel string

const (
	ChannelIFTTT   NotifyChannel = "ifttt"
	ChannelMailgun NotifyChannel = "mailgun"
)

var (
	BookFormats    = []BookFormat{FormatPDF, FormatEPUB}
	UploadTargets  = []UploadTarget{TargetDropbox, TargetFTP, TargetSFTP}
	NotifyChannels = []NotifyChannel{ChannelIFTTT, ChannelMailgun}
)

// ParseBookFormat validates s against BookFormats. Matching is case-insensitive.
func ParseBookFormat(s string) (BookFormat, error) {
	return parseEnum(s, "type", BookFormats)
}

// ParseUploadTarget validates s against UploadTargets. An empty string
// means no upload and is returned as-is.
func ParseUploadTarget(s string) (UploadTarget, error) {
	if s == "" {
		return "", nil
	}
	return parseEnum(s, "upload", UploadTargets)
}

// ParseNotifyChannel validates s against NotifyChannels. An empty string
// means no notification and is returned as-is.
func ParseNotifyChannel(s string) (NotifyChannel, error) {
	if s == "" {
		return "", nil
	}
	return parseEnum(s, "notify", NotifyChannels)
}

func parseEnum[T ~string](s, flag string, choices []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	names := make([]string, len(choices))
	for i, c := range choices {
		if c == v {
			return c, nil
		}
		names[i] = string(c)
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q for --%s (choose from %s)", s, flag, strings.Join(names, ", "))
}
