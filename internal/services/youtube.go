package services

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"studypath-backend/internal/models"
)

// ErrVideoUnavailable marks failures that will never succeed on retry, such
// as videos with no captions at all.
type ErrVideoUnavailable struct {
	VideoID string
	Reason  string
}

func (e *ErrVideoUnavailable) Error() string {
	return fmt.Sprintf("video %s unavailable: %s", e.VideoID, e.Reason)
}

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

type timedTextXML struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []textXML `xml:"text"`
}

type textXML struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

// GetTranscript fetches the caption track with per-segment timing. Timing is
// required downstream for timestamped deep links, so the plain-text join the
// transcript API offers is not enough.
func (s *YouTubeService) GetTranscript(videoID string) ([]models.TranscriptSegment, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: any available language
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			segments, legacyErr := s.getTranscriptViaTimedText(videoID)
			if legacyErr == nil {
				return segments, nil
			}
			return nil, &ErrVideoUnavailable{
				VideoID: videoID,
				Reason:  fmt.Sprintf("no subtitles via transcript API (%v), timedtext fallback failed (%v)", err, legacyErr),
			}
		}
	}

	var segments []models.TranscriptSegment
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			Text:     text,
			Start:    entry.Start,
			Duration: entry.Duration,
		})
	}

	if len(segments) == 0 {
		return nil, &ErrVideoUnavailable{VideoID: videoID, Reason: "subtitle track is empty"}
	}
	return segments, nil
}

func (s *YouTubeService) getTranscriptViaTimedText(videoID string) ([]models.TranscriptSegment, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, _ := http.NewRequest("GET", pageURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch YouTube page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read YouTube page: %w", err)
	}

	pageHTML := string(body)
	log.Printf("TimedText fallback: fetched YouTube page for %s (%d bytes)", videoID, len(pageHTML))

	captionURL, err := extractCaptionURL(pageHTML)
	if err != nil {
		return nil, err
	}

	captionResp, err := s.httpClient.Get(captionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer captionResp.Body.Close()

	captionBody, err := io.ReadAll(captionResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}

	segments, err := parseCaptionsXML(captionBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captions XML: %w", err)
	}
	return segments, nil
}

func extractCaptionURL(pageHTML string) (string, error) {
	re := regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	matches := re.FindStringSubmatch(pageHTML)
	if len(matches) < 2 {
		re2 := regexp.MustCompile(`"playerCaptionsTracklistRenderer"\s*:\s*\{(?:.*?,)?\s*"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
		matches = re2.FindStringSubmatch(pageHTML)
		if len(matches) < 2 {
			return "", fmt.Errorf("no captions available for this video")
		}
	}

	tracksJSON := matches[1]
	reURL := regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	urlMatches := reURL.FindStringSubmatch(tracksJSON)
	if len(urlMatches) < 2 {
		return "", fmt.Errorf("caption track found but baseUrl missing")
	}

	u := urlMatches[1]
	u = strings.ReplaceAll(u, `\u0026`, "&")
	u = strings.ReplaceAll(u, `\/`, "/")

	return u, nil
}

func parseCaptionsXML(data []byte) ([]models.TranscriptSegment, error) {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	var segments []models.TranscriptSegment
	for _, t := range tt.Texts {
		text := html.UnescapeString(t.Text)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(t.Start, 64)
		dur, _ := strconv.ParseFloat(t.Dur, 64)
		segments = append(segments, models.TranscriptSegment{Text: text, Start: start, Duration: dur})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("captions XML empty")
	}
	return segments, nil
}

// GetVideoMetadata scrapes title, channel, description, duration and the
// view/like counters from the watch page.
func (s *YouTubeService) GetVideoMetadata(videoID string) (*models.VideoMeta, error) {
	pageURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	req, _ := http.NewRequest("GET", pageURL, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	page := string(body)

	meta := &models.VideoMeta{
		VideoID:      videoID,
		YouTubeLink:  pageURL,
		ThumbnailURL: fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID),
	}

	titleRe := regexp.MustCompile(`<title>(.*?) - YouTube</title>`)
	if m := titleRe.FindStringSubmatch(page); len(m) > 1 {
		meta.Title = html.UnescapeString(m[1])
	}

	channelRe := regexp.MustCompile(`"ownerChannelName":"(.*?)"`)
	if m := channelRe.FindStringSubmatch(page); len(m) > 1 {
		meta.Channel = m[1]
	}

	descRe := regexp.MustCompile(`<meta name="description" content="(.*?)">`)
	if m := descRe.FindStringSubmatch(page); len(m) > 1 {
		meta.Description = html.UnescapeString(m[1])
	} else {
		ogDescRe := regexp.MustCompile(`<meta property="og:description" content="(.*?)">`)
		if m := ogDescRe.FindStringSubmatch(page); len(m) > 1 {
			meta.Description = html.UnescapeString(m[1])
		}
	}

	durRe := regexp.MustCompile(`"lengthSeconds":"(\d+)"`)
	if m := durRe.FindStringSubmatch(page); len(m) > 1 {
		meta.DurationSeconds, _ = strconv.Atoi(m[1])
	}

	viewsRe := regexp.MustCompile(`"viewCount":"(\d+)"`)
	if m := viewsRe.FindStringSubmatch(page); len(m) > 1 {
		meta.Views, _ = strconv.ParseInt(m[1], 10, 64)
	}

	// Like count only appears in the accessibility label these days.
	likesRe := regexp.MustCompile(`"label":"([\d,]+) likes"`)
	if m := likesRe.FindStringSubmatch(page); len(m) > 1 {
		meta.Likes, _ = strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	}

	// Prefer the structured client for duration if the page scrape missed it.
	if meta.DurationSeconds == 0 {
		if video, vErr := s.ytClient.GetVideo(videoID); vErr == nil {
			meta.DurationSeconds = int(video.Duration.Seconds())
			if meta.Title == "" {
				meta.Title = video.Title
			}
			if meta.Channel == "" {
				meta.Channel = video.Author
			}
		}
	}

	return meta, nil
}
