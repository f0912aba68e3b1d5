package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode selects which output a download produces
type Mode string

const (
	ModeAudio Mode = "audio"
	ModeVideo Mode = "video"
)

// AudioFormat is a target audio container/codec
type AudioFormat string

const (
	AudioMP3 AudioFormat = "mp3"
	AudioWAV AudioFormat = "wav"
	AudioOGG AudioFormat = "ogg"
)

// VideoFormat is a merge container for video downloads
type VideoFormat string

const (
	VideoMP4 VideoFormat = "mp4"
	VideoMOV VideoFormat = "mov"
	VideoMKV VideoFormat = "mkv"
)

// DefaultVideoFormat is used whenever a requested container is not recognized
const DefaultVideoFormat = VideoMP4

// AllAudioFormats lists every audio format the transcoder knows about
var AllAudioFormats = []AudioFormat{AudioMP3, AudioWAV, AudioOGG}

// AllVideoFormats lists every container the merger knows about
var AllVideoFormats = []VideoFormat{VideoMP4, VideoMOV, VideoMKV}

// DownloadRequest describes one user-initiated download.
// Only the format matching Mode is active; the other one is ignored.
type DownloadRequest struct {
	URL         string      `json:"url"`
	Mode        Mode        `json:"mode"`
	AudioFormat AudioFormat `json:"audio_format,omitempty"`
	VideoFormat VideoFormat `json:"video_format,omitempty"`
}

// NewDownloadRequest builds a request with a trimmed URL and lower-cased selectors
func NewDownloadRequest(url string, mode Mode, audio AudioFormat, video VideoFormat) DownloadRequest {
	return DownloadRequest{
		URL:         strings.TrimSpace(url),
		Mode:        Mode(strings.ToLower(strings.TrimSpace(string(mode)))),
		AudioFormat: AudioFormat(strings.ToLower(strings.TrimSpace(string(audio)))),
		VideoFormat: VideoFormat(strings.ToLower(strings.TrimSpace(string(video)))),
	}
}

// Phase is the stage a download is in
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseDownloading    Phase = "downloading"
	PhasePostProcessing Phase = "post-processing"
	PhaseDone           Phase = "done"
	PhaseError          Phase = "error"
)

// IsTerminal reports whether no further events may follow this phase
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseError
}

// ProgressEvent is one normalized progress update.
// Percent is only meaningful while downloading and for the final done event.
type ProgressEvent struct {
	Phase   Phase   `json:"phase"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Outcome is the terminal result of a download
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// DownloadResult is produced exactly once per executed request
type DownloadResult struct {
	Outcome     Outcome   `json:"outcome"`
	OutputPath  string    `json:"output_path,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
}

// Succeeded reports whether the download produced an output file
func (r *DownloadResult) Succeeded() bool {
	return r != nil && r.Outcome == OutcomeSuccess
}

// Job tracks one request launched in the background by a front end
type Job struct {
	ID          string          `json:"id"`
	Request     DownloadRequest `json:"request"`
	Phase       Phase           `json:"phase"`
	LastEvent   *ProgressEvent  `json:"last_event,omitempty"`
	Result      *DownloadResult `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewJob creates a job for a request that has not started yet
func NewJob(req DownloadRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Request:   req,
		Phase:     PhaseIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply records a progress event on the job
func (j *Job) Apply(ev ProgressEvent) {
	j.Phase = ev.Phase
	e := ev
	j.LastEvent = &e
	j.UpdatedAt = time.Now()
}

// Complete records the terminal result
func (j *Job) Complete(res *DownloadResult) {
	j.Result = res
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
	if res.Succeeded() {
		j.Phase = PhaseDone
	} else {
		j.Phase = PhaseError
	}
}

// IsTerminal checks if the job has finished
func (j *Job) IsTerminal() bool {
	return j.Phase.IsTerminal()
}

// ValidateMode checks if a mode is known
func ValidateMode(mode Mode) bool {
	return mode == ModeAudio || mode == ModeVideo
}

// ValidateAudioFormat checks if an audio format is known
func ValidateAudioFormat(f AudioFormat) bool {
	for _, known := range AllAudioFormats {
		if f == known {
			return true
		}
	}
	return false
}

// ValidateVideoFormat checks if a video container is known
func ValidateVideoFormat(f VideoFormat) bool {
	for _, known := range AllVideoFormats {
		if f == known {
			return true
		}
	}
	return false
}
