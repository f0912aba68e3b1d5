package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/yourusername/pydown-go/internal/domain"
)

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// getJSON fetches path from the server into v
func getJSON(path string, v interface{}) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, v)
}

var submitCmd = &cobra.Command{
	Use:   "submit [url]",
	Short: "Start a download on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		mode, _ := cmd.Flags().GetString("mode")
		audioFormat, _ := cmd.Flags().GetString("audio-format")
		videoFormat, _ := cmd.Flags().GetString("video-format")
		wait, _ := cmd.Flags().GetBool("wait")

		payload := map[string]string{
			"url":  args[0],
			"mode": mode,
		}
		if audioFormat != "" {
			payload["audio_format"] = audioFormat
		}
		if videoFormat != "" {
			payload["video_format"] = videoFormat
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/downloads", "application/json", bytes.NewBuffer(data))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("%s", strings.TrimSpace(string(body)))
		}

		var job domain.Job
		if err := json.Unmarshal(body, &job); err != nil {
			return err
		}
		fmt.Printf("Download started\n")
		fmt.Printf("ID: %s\n", job.ID)

		if !wait {
			return nil
		}
		return watchJob(job.ID)
	},
}

// watchJob prints the job's events until the server closes the stream
func watchJob(id string) error {
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/v1/downloads/" + id + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to watch download: %w", err)
	}
	defer conn.Close()

	printer := newProgressPrinter(os.Stdout, false)
	var last domain.ProgressEvent
	for {
		var ev domain.ProgressEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return err
		}
		printer.OnProgress(ev)
		last = ev
	}

	if last.Phase == domain.PhaseError {
		return fmt.Errorf("download failed: %s", last.Message)
	}
	fmt.Println(last.Message)
	return nil
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List downloads known to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		phase, _ := cmd.Flags().GetString("phase")

		path := "/api/v1/downloads"
		if phase != "" {
			path += "?phase=" + phase
		}

		var jobs []domain.Job
		if err := getJSON(path, &jobs); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tMODE\tFORMAT\tPHASE\tCREATED")
		for _, j := range jobs {
			format := string(j.Request.AudioFormat)
			if j.Request.Mode == domain.ModeVideo {
				format = string(j.Request.VideoFormat)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(j.ID, 8),
				truncate(j.Request.URL, 40),
				j.Request.Mode,
				format,
				j.Phase,
				j.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var jobCmd = &cobra.Command{
	Use:   "job [id]",
	Short: "Show download details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var job domain.Job
		if err := getJSON("/api/v1/downloads/"+args[0], &job); err != nil {
			return err
		}

		fmt.Printf("Download Details:\n")
		fmt.Printf("  ID:      %s\n", job.ID)
		fmt.Printf("  URL:     %s\n", job.Request.URL)
		fmt.Printf("  Mode:    %s\n", job.Request.Mode)
		fmt.Printf("  Phase:   %s\n", job.Phase)
		fmt.Printf("  Created: %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
		if job.LastEvent != nil {
			fmt.Printf("  Last:    %s\n", renderBar(*job.LastEvent, barWidth))
		}
		if job.Result != nil {
			if job.Result.Succeeded() {
				fmt.Printf("  File:    %s\n", job.Result.OutputPath)
			} else {
				fmt.Printf("  Error:   %s (%s)\n", job.Result.ErrorDetail, job.Result.ErrorKind)
			}
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var stats struct {
			Total   int            `json:"total"`
			ByPhase map[string]int `json:"by_phase"`
		}
		if err := getJSON("/api/v1/downloads/stats", &stats); err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:           %d\n", stats.Total)
		fmt.Printf("  Downloading:     %d\n", stats.ByPhase[string(domain.PhaseDownloading)])
		fmt.Printf("  Post-processing: %d\n", stats.ByPhase[string(domain.PhasePostProcessing)])
		fmt.Printf("  Done:            %d\n", stats.ByPhase[string(domain.PhaseDone)])
		fmt.Printf("  Failed:          %d\n", stats.ByPhase[string(domain.PhaseError)])
		return nil
	},
}

func init() {
	submitCmd.Flags().StringP("mode", "m", string(domain.ModeAudio), "Download mode (audio, video)")
	submitCmd.Flags().StringP("audio-format", "a", "", "Audio format (mp3, wav, ogg)")
	submitCmd.Flags().StringP("video-format", "f", "", "Video container (mp4, mov, mkv)")
	submitCmd.Flags().BoolP("wait", "w", false, "Follow progress until the download finishes")
	jobsCmd.Flags().StringP("phase", "p", "", "Filter by phase (downloading, post-processing, done, error)")
}
