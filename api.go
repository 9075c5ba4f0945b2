package dctdm

import "io"

// Hide decodes r as a baseline JPEG, embeds payload under cfg (after
// sealing it with transform), and writes the resulting stego JPEG to w.
// transform may be Identity{} to embed payload verbatim.
func Hide(w io.Writer, r io.Reader, payload []byte, cfg Config, transform Transform, cancel CancelToken) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	img, err := Decode(r, cancel)
	if err != nil {
		return err
	}
	sealed, err := transform.Seal(payload)
	if err != nil {
		return err
	}
	if err := Embed(img, sealed, cfg, cancel); err != nil {
		return err
	}
	return Encode(w, img, cancel)
}

// Reveal decodes r as a stego baseline JPEG, extracts the embedded payload
// under cfg, and opens it with transform. transform may be Identity{} if
// no passphrase was used to seal the payload.
func Reveal(r io.Reader, cfg Config, transform Transform, cancel CancelToken) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	img, err := Decode(r, cancel)
	if err != nil {
		return nil, err
	}
	sealed, err := Extract(img, cfg, cancel)
	if err != nil {
		return nil, err
	}
	return transform.Open(sealed)
}
