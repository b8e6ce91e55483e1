// Package form validates launch drafts before anything is sent on chain.
package form

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/program"
)

const (
	MaxDescriptionLength = 250
	MaxBannerBytes       = 4 * 1024 * 1024
)

// invalidPageChars cannot appear in a page name because it becomes a URL path.
const invalidPageChars = ":/?#[]@&=+$,{}|\\^~`<>% \""

// User-facing validation messages.
const (
	MsgInvalidPageName = "Page name contains invalid characters for URL"
	MsgDescriptionLong = "Description should be less than 250 characters long"
	MsgBannerMissing   = "Please select a banner image."
	MsgBannerTooLarge  = "File size exceeds 4MB limit."
	MsgPageTaken       = "Page name already exists"
	MsgPageNameEmpty   = "Please enter a page name."
)

// ValidationError is a draft problem shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Draft is the page step of a launch being created or edited.
type Draft struct {
	PageName    string `yaml:"page_name"`
	Description string `yaml:"description"`
	BannerFile  string `yaml:"banner_file"`
	WebURL      string `yaml:"web_url"`
	TelegramURL string `yaml:"telegram_url"`
	TwitterURL  string `yaml:"twitter_url"`
	DiscordURL  string `yaml:"discord_url"`
	EditMode    bool   `yaml:"edit_mode"`

	// BannerSize is filled from the banner file when the draft is loaded.
	BannerSize int64 `yaml:"-"`
}

// Socials returns the non-empty social links in display order.
func (d *Draft) Socials() []string {
	var out []string
	for _, s := range []string{d.WebURL, d.TwitterURL, d.TelegramURL, d.DiscordURL} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadDraft reads a draft from YAML. A relative banner path is resolved
// against the draft's directory.
func LoadDraft(path string) (*Draft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	var d Draft
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse draft: %w", err)
	}
	if d.BannerFile != "" {
		if !filepath.IsAbs(d.BannerFile) {
			d.BannerFile = filepath.Join(filepath.Dir(path), d.BannerFile)
		}
		info, err := os.Stat(d.BannerFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read banner: %w", err)
		}
		d.BannerSize = info.Size()
	}
	return &d, nil
}

// CheckPageName rejects names that cannot be used as a URL path segment.
func CheckPageName(name string) error {
	if name == "" {
		return &ValidationError{Field: "page_name", Message: MsgPageNameEmpty}
	}
	if strings.ContainsAny(name, invalidPageChars) {
		return &ValidationError{Field: "page_name", Message: MsgInvalidPageName}
	}
	return nil
}

// CheckLocal runs every check that needs no network.
func CheckLocal(d *Draft) error {
	if err := CheckPageName(d.PageName); err != nil {
		return err
	}
	if utf8.RuneCountInString(d.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: MsgDescriptionLong}
	}
	if d.BannerFile == "" {
		return &ValidationError{Field: "banner_file", Message: MsgBannerMissing}
	}
	if d.BannerSize > MaxBannerBytes {
		return &ValidationError{Field: "banner_file", Message: MsgBannerTooLarge}
	}
	return nil
}

// Validator checks drafts, including page name availability on chain.
type Validator struct {
	reader blockchain.Reader
	addrs  program.Addresses
	bus    events.Publisher
	logger *zap.Logger
}

// NewValidator создает валидатор. bus may be nil.
func NewValidator(reader blockchain.Reader, addrs program.Addresses, bus events.Publisher, logger *zap.Logger) *Validator {
	return &Validator{reader: reader, addrs: addrs, bus: bus, logger: logger.Named("form")}
}

// Validate returns a *ValidationError for a bad draft, a wrapped error when
// availability could not be checked, or nil. Failures raise a notice.
func (v *Validator) Validate(ctx context.Context, d *Draft) error {
	err := v.validate(ctx, d)
	if err != nil {
		events.Notify(v.bus, events.NoticeError, "validate_launch", err.Error())
		v.logger.Debug("Draft rejected", zap.String("page", d.PageName), zap.Error(err))
	}
	return err
}

func (v *Validator) validate(ctx context.Context, d *Draft) error {
	if err := CheckLocal(d); err != nil {
		return err
	}
	if d.EditMode {
		return nil
	}
	launch, err := v.addrs.Launch(d.PageName)
	if err != nil {
		return err
	}
	balance, err := v.reader.GetBalance(ctx, launch)
	if err != nil {
		return fmt.Errorf("failed to check page name: %w", err)
	}
	if balance > 0 {
		return &ValidationError{Field: "page_name", Message: MsgPageTaken}
	}
	return nil
}
