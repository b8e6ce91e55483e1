package form

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/letscook/internal/blockchain/chaintest"
	"github.com/rovshanmuradov/letscook/internal/events/eventstest"
	"github.com/rovshanmuradov/letscook/internal/program"
)

func validDraft() *Draft {
	return &Draft{
		PageName:    "sauce",
		Description: "a spicy token",
		BannerFile:  "banner.png",
		BannerSize:  1024,
	}
}

func TestCheckLocal(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Draft)
		want   string
	}{
		{"valid", func(*Draft) {}, ""},
		{"empty name", func(d *Draft) { d.PageName = "" }, MsgPageNameEmpty},
		{"slash", func(d *Draft) { d.PageName = "sa/uce" }, MsgInvalidPageName},
		{"space", func(d *Draft) { d.PageName = "sa uce" }, MsgInvalidPageName},
		{"quote", func(d *Draft) { d.PageName = `sa"uce` }, MsgInvalidPageName},
		{"percent", func(d *Draft) { d.PageName = "100%" }, MsgInvalidPageName},
		{"dash is fine", func(d *Draft) { d.PageName = "sauce-2" }, ""},
		{"description at limit", func(d *Draft) { d.Description = strings.Repeat("a", 250) }, ""},
		{"description too long", func(d *Draft) { d.Description = strings.Repeat("a", 251) }, MsgDescriptionLong},
		{"multibyte counted as characters", func(d *Draft) { d.Description = strings.Repeat("é", 250) }, ""},
		{"no banner", func(d *Draft) { d.BannerFile = "" }, MsgBannerMissing},
		{"banner at limit", func(d *Draft) { d.BannerSize = MaxBannerBytes }, ""},
		{"banner too large", func(d *Draft) { d.BannerSize = MaxBannerBytes + 1 }, MsgBannerTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.modify(d)
			err := CheckLocal(d)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestValidatePageAvailability(t *testing.T) {
	addrs := program.Addresses{Program: solana.NewWallet().PublicKey()}
	chain := chaintest.New()
	rec := &eventstest.Recorder{}
	v := NewValidator(chain, addrs, rec, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, v.Validate(ctx, validDraft()))

	launch, err := addrs.Launch("sauce")
	require.NoError(t, err)
	chain.SetAccount(launch, addrs.Program, 2_000_000, []byte{1})

	err = v.Validate(ctx, validDraft())
	assert.EqualError(t, err, MsgPageTaken)
	assert.Equal(t, []string{MsgPageTaken}, rec.Notices())

	edit := validDraft()
	edit.EditMode = true
	assert.NoError(t, v.Validate(ctx, edit), "edit mode skips the availability check")

	reads := chain.Reads()
	bad := validDraft()
	bad.PageName = "a?b"
	assert.EqualError(t, v.Validate(ctx, bad), MsgInvalidPageName)
	assert.Equal(t, reads, chain.Reads(), "local failures never reach the network")

	chain.ReadErr = errors.New("rpc down")
	err = v.Validate(ctx, validDraft())
	assert.ErrorContains(t, err, "rpc down")
	assert.False(t, IsValidation(err))
}

func TestLoadDraft(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "banner.png"), make([]byte, 2048), 0o600))
	yml := `page_name: sauce
description: a spicy token
banner_file: banner.png
twitter_url: https://x.com/sauce
web_url: https://sauce.fun
`
	path := filepath.Join(dir, "draft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	d, err := LoadDraft(path)
	require.NoError(t, err)
	assert.Equal(t, "sauce", d.PageName)
	assert.Equal(t, int64(2048), d.BannerSize)
	assert.Equal(t, filepath.Join(dir, "banner.png"), d.BannerFile)
	assert.Equal(t, []string{"https://sauce.fun", "https://x.com/sauce"}, d.Socials())
	assert.NoError(t, CheckLocal(d))

	require.NoError(t, os.WriteFile(path, []byte("page_name: x\nbanner_file: missing.png\n"), 0o600))
	_, err = LoadDraft(path)
	assert.Error(t, err)

	_, err = LoadDraft(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}
