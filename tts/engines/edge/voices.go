package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charlesneimog/pdftts/tts"
)

// ListVoices fetches the voice catalog from the read-aloud service, sorted
// by short name.
func ListVoices(ctx context.Context) ([]tts.Voice, error) {
	url := fmt.Sprintf("%s?trustedclienttoken=%s", voicesEndpoint, trustedToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", chromeUA)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching voice list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching voice list: unexpected status %s", resp.Status)
	}

	var voices []tts.Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("decoding voice list: %w", err)
	}

	sort.Slice(voices, func(i, j int) bool {
		return voices[i].ShortName < voices[j].ShortName
	})
	return voices, nil
}

// FilterVoices narrows a voice list to those whose locale starts with the
// given prefix, such as "en" or "pt-BR". An empty prefix keeps everything.
func FilterVoices(voices []tts.Voice, localePrefix string) []tts.Voice {
	if localePrefix == "" {
		return voices
	}
	out := voices[:0:0]
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.Locale), strings.ToLower(localePrefix)) {
			out = append(out, v)
		}
	}
	return out
}
