package httpapi

import "github.com/storj-labs/workspace-broker/internal/model"

func toMediaMetadata(p *mediaMetadataPayload) *model.MediaMetadata {
	if p == nil {
		return nil
	}
	return &model.MediaMetadata{
		CodecTagString: p.CodecTagString,
		Width:          p.Width,
		Height:         p.Height,
		DurationTS:     p.DurationTS,
		RFrameRate:     p.RFrameRate,
		BitRate:        p.BitRate,
		DurationSec:    p.DurationSec,
		FormatName:     p.FormatName,
	}
}
