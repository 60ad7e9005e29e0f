package edge

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Wire format constants for the Edge read-aloud service.
const (
	wssEndpoint    = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	voicesEndpoint = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list"
	trustedToken   = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	chromeUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0"
	chromeOrigin = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"

	outputFormat = "audio-24khz-48kbitrate-mono-mp3"
)

// Paths carried in message headers.
const (
	pathTurnStart     = "turn.start"
	pathTurnEnd       = "turn.end"
	pathAudio         = "audio"
	pathAudioMetadata = "audio.metadata"
)

// newRequestID returns a 32-character lowercase hex id, the format the
// service expects for ConnectionId and X-RequestId.
func newRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fall back to a time-derived id; uniqueness per connection is
		// all the service needs.
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	}
	return hex.EncodeToString(b[:])
}

// wireTimestamp formats the clock the way the browser client does.
func wireTimestamp() string {
	return time.Now().UTC().Format("Mon Jan 2 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

// speechConfigMessage is the first frame of every connection. It fixes the
// audio output format and enables boundary metadata.
func speechConfigMessage() string {
	cfg := map[string]any{
		"context": map[string]any{
			"synthesis": map[string]any{
				"audio": map[string]any{
					"metadataoptions": map[string]any{
						"sentenceBoundaryEnabled": "false",
						"wordBoundaryEnabled":     "true",
					},
					"outputFormat": outputFormat,
				},
			},
		},
	}
	body, _ := json.Marshal(cfg)

	var b strings.Builder
	b.WriteString("X-Timestamp:" + wireTimestamp() + "\r\n")
	b.WriteString("Content-Type:application/json; charset=utf-8\r\n")
	b.WriteString("Path:speech.config\r\n\r\n")
	b.Write(body)
	return b.String()
}

// ssmlMessage wraps text in SSML and frames it with the headers the
// service requires.
func ssmlMessage(requestID, ssml string) string {
	var b strings.Builder
	b.WriteString("X-RequestId:" + requestID + "\r\n")
	b.WriteString("Content-Type:application/ssml+xml\r\n")
	b.WriteString("X-Timestamp:" + wireTimestamp() + "\r\n")
	b.WriteString("Path:ssml\r\n\r\n")
	b.WriteString(ssml)
	return b.String()
}

// buildSSML renders the synthesis request document. Rate is a signed
// percentage like "+35%"; lang falls back to en-US when empty.
func buildSSML(text, voice, rate, lang string) string {
	if lang == "" {
		lang = "en-US"
	}
	if rate == "" {
		rate = "+0%"
	}
	return fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'>"+
			"<voice name='%s'><prosody pitch='+0Hz' rate='%s' volume='+0%%'>%s</prosody></voice></speak>",
		lang, voice, rate, escapeText(text))
}

// escapeText makes text safe for embedding in SSML.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

// textMessage is a parsed text frame: CRLF-separated headers, a blank
// line, then the body.
type textMessage struct {
	headers map[string]string
	body    []byte
}

func (m textMessage) path() string {
	return m.headers["Path"]
}

// parseTextMessage splits a text frame into headers and body.
func parseTextMessage(data []byte) (textMessage, error) {
	head, body, found := bytes.Cut(data, []byte("\r\n\r\n"))
	if !found {
		return textMessage{}, fmt.Errorf("malformed message: missing header separator")
	}

	msg := textMessage{headers: make(map[string]string), body: body}
	for _, line := range bytes.Split(head, []byte("\r\n")) {
		if len(line) == 0 {
			continue
		}
		k, v, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			return textMessage{}, fmt.Errorf("malformed header line %q", line)
		}
		msg.headers[string(k)] = string(bytes.TrimSpace(v))
	}
	return msg, nil
}

// parseBinaryMessage extracts the audio payload from a binary frame. The
// first two bytes are the big-endian length of the embedded text headers.
func parseBinaryMessage(data []byte) (path string, audio []byte, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("binary message too short: %d bytes", len(data))
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if 2+headerLen > len(data) {
		return "", nil, fmt.Errorf("binary header length %d exceeds message size %d", headerLen, len(data))
	}

	// Copy the header region before appending the separator so the
	// audio bytes that follow it in the frame are not clobbered.
	head := make([]byte, headerLen, headerLen+4)
	copy(head, data[2:2+headerLen])

	msg, err := parseTextMessage(append(head, "\r\n\r\n"...))
	if err != nil {
		return "", nil, err
	}
	return msg.path(), data[2+headerLen:], nil
}

// boundaryMetadata is the audio.metadata payload carrying word timings.
type boundaryMetadata struct {
	Metadata []struct {
		Type string `json:"Type"`
		Data struct {
			Offset int64 `json:"Offset"`
			Text   struct {
				Text string `json:"Text"`
			} `json:"text"`
		} `json:"Data"`
	} `json:"Metadata"`
}

func parseBoundaryMetadata(body []byte) (boundaryMetadata, error) {
	var md boundaryMetadata
	if err := json.Unmarshal(body, &md); err != nil {
		return boundaryMetadata{}, fmt.Errorf("decoding boundary metadata: %w", err)
	}
	return md, nil
}
