package imageurl

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyURL indicates no URL was supplied.
	ErrEmptyURL = errors.New("image url must not be empty")
	// ErrInvalidURL indicates the URL could not be parsed.
	ErrInvalidURL = errors.New("invalid url format")
	// ErrUnsupportedScheme indicates a scheme other than http or https.
	ErrUnsupportedScheme = errors.New("only http and https urls are allowed")
	// ErrInvalidHost indicates the URL has no usable host.
	ErrInvalidHost = errors.New("url must have a valid host")
	// ErrPathTraversal indicates a suspicious path segment.
	ErrPathTraversal = errors.New("path traversal is not allowed")
	// ErrUnsupportedExtension indicates the path does not point at an image.
	ErrUnsupportedExtension = errors.New("only image files are allowed")
	// ErrPrivateHost indicates the URL targets a loopback, private or link-local address.
	ErrPrivateHost = errors.New("internal network addresses are not allowed")
)

// sharedAddressSpace is the carrier-grade NAT range, which net.IP.IsPrivate does not cover.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// DefaultMIMETypes lists the image formats accepted for mission uploads.
var DefaultMIMETypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/webp"}

// Validator checks that user supplied image URLs are safe to hand to remote vision models.
type Validator struct {
	schemes      map[string]struct{}
	extensions   map[string]string
	allowPrivate bool
}

// New builds a validator accepting the given MIME types, or DefaultMIMETypes when none are given.
func New(mimeTypes ...string) *Validator {
	if len(mimeTypes) == 0 {
		mimeTypes = DefaultMIMETypes
	}

	extensions := make(map[string]string, len(mimeTypes)+1)
	for _, name := range mimeTypes {
		mime := mimetype.Lookup(name)
		if mime == nil {
			continue
		}
		ext := strings.TrimPrefix(mime.Extension(), ".")
		if ext != "" {
			extensions[ext] = mime.String()
		}
		if mime.Is("image/jpeg") {
			extensions["jpeg"] = mime.String()
		}
	}

	return &Validator{
		schemes:    map[string]struct{}{"http": {}, "https": {}},
		extensions: extensions,
	}
}

// WithPrivateHosts returns a copy that also accepts loopback and private
// network targets. Only local fixtures should need it.
func (v *Validator) WithPrivateHosts() *Validator {
	clone := *v
	clone.allowPrivate = true
	return &clone
}

// Validate parses raw and returns the URL when it passes every safety rule.
// A path without an extension is accepted; storage providers often serve images from opaque keys.
func (v *Validator) Validate(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyURL
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if _, ok := v.schemes[strings.ToLower(parsed.Scheme)]; !ok {
		return nil, ErrUnsupportedScheme
	}

	host := strings.TrimSpace(parsed.Hostname())
	if host == "" {
		return nil, ErrInvalidHost
	}
	if err := v.checkHost(host); err != nil {
		return nil, err
	}

	lowerPath := strings.ToLower(parsed.Path)
	if strings.Contains(lowerPath, "..") || strings.Contains(lowerPath, "//") {
		return nil, ErrPathTraversal
	}

	if ext := extension(lowerPath); ext != "" {
		if _, ok := v.extensions[ext]; !ok {
			return nil, ErrUnsupportedExtension
		}
	}

	return parsed, nil
}

// AllowsMIME reports whether a detected content type is one of the accepted image formats.
func (v *Validator) AllowsMIME(contentType string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, mime := range v.extensions {
		if mime == base {
			return true
		}
	}
	return false
}

// AllowsIP reports whether a resolved address may be contacted.
func (v *Validator) AllowsIP(ip net.IP) bool {
	if v.allowPrivate {
		return true
	}
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return false
	}
	if addr, ok := netip.AddrFromSlice(ip); ok && sharedAddressSpace.Contains(addr.Unmap()) {
		return false
	}
	return true
}

// DialControl is a net.Dialer Control hook. It runs after name resolution,
// so a host that resolves to an internal address is refused even when the
// URL itself passed Validate.
func (v *Validator) DialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHost, err)
	}
	if !v.AllowsIP(net.ParseIP(host)) {
		return fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}
	return nil
}

func (v *Validator) checkHost(host string) error {
	if v.allowPrivate {
		return nil
	}
	name := strings.TrimSuffix(strings.ToLower(host), ".")
	if name == "localhost" || strings.HasSuffix(name, ".localhost") {
		return ErrPrivateHost
	}
	if zone := strings.IndexByte(name, '%'); zone >= 0 {
		name = name[:zone]
	}
	if ip := net.ParseIP(name); ip != nil && !v.AllowsIP(ip) {
		return ErrPrivateHost
	}
	return nil
}

func extension(p string) string {
	return strings.TrimPrefix(path.Ext(p), ".")
}
