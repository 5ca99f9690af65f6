// Package mcpsurface exposes a small Model Context Protocol tool server as
// an alternative control surface alongside the terminal UI: list_devices,
// toggle_microphone, get_latest_transcript, and list_transcripts.
package mcpsurface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fankserver/voicepipe/internal/archive"
)

// LoopControl is the subset of *eventloop.Loop the MCP surface needs.
type LoopControl interface {
	DeviceNames() []string
	ToggleDevice(device string, enabled bool)
}

// Server wraps an mcp.Server configured with this application's tools.
type Server struct {
	mcp      *mcp.Server
	loop     LoopControl
	archiver *archive.Archiver
}

// New builds the tool server. Call Run to serve over stdio.
func New(loop LoopControl, archiver *archive.Archiver) *Server {
	s := &Server{
		mcp:      mcp.NewServer(&mcp.Implementation{Name: "voicepipe", Version: "0.1.0"}, nil),
		loop:     loop,
		archiver: archiver,
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdin/stdout until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

type listDevicesArgs struct{}
type listDevicesResult struct {
	Devices []string `json:"devices"`
}

type toggleMicrophoneArgs struct {
	Device  string `json:"device"`
	Enabled bool   `json:"enabled"`
}
type toggleMicrophoneResult struct {
	OK bool `json:"ok"`
}

type getLatestTranscriptArgs struct{}
type getLatestTranscriptResult struct {
	Path    string          `json:"path"`
	Records []archive.Record `json:"records"`
}

type listTranscriptsArgs struct{}
type listTranscriptsResult struct {
	Paths []string `json:"paths"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_devices",
		Description: "List every microphone device registered with the running pipeline.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listDevicesArgs) (*mcp.CallToolResult, listDevicesResult, error) {
		names := s.loop.DeviceNames()
		sort.Strings(names)
		return nil, listDevicesResult{Devices: names}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "toggle_microphone",
		Description: "Enable or disable capture for a named microphone device.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args toggleMicrophoneArgs) (*mcp.CallToolResult, toggleMicrophoneResult, error) {
		if args.Device == "" {
			return nil, toggleMicrophoneResult{}, fmt.Errorf("mcpsurface: device is required")
		}
		s.loop.ToggleDevice(args.Device, args.Enabled)
		return nil, toggleMicrophoneResult{OK: true}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_latest_transcript",
		Description: "Return every archived transcript record from the most recent day with any.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getLatestTranscriptArgs) (*mcp.CallToolResult, getLatestTranscriptResult, error) {
		path, err := s.archiver.LatestPath()
		if err != nil {
			return nil, getLatestTranscriptResult{}, fmt.Errorf("mcpsurface: %w", err)
		}
		if path == "" {
			return nil, getLatestTranscriptResult{}, nil
		}
		records, err := readRecords(path)
		if err != nil {
			return nil, getLatestTranscriptResult{}, fmt.Errorf("mcpsurface: %w", err)
		}
		return nil, getLatestTranscriptResult{Path: path, Records: records}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_transcripts",
		Description: "List every archived transcript file path, oldest first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listTranscriptsArgs) (*mcp.CallToolResult, listTranscriptsResult, error) {
		var paths []string
		err := filepath.WalkDir(s.archiver.Root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".jsonl" {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, listTranscriptsResult{}, fmt.Errorf("mcpsurface: %w", err)
		}
		sort.Strings(paths)
		return nil, listTranscriptsResult{Paths: paths}, nil
	})
}

func readRecords(path string) ([]archive.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []archive.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var rec archive.Record
		if err := dec.Decode(&rec); err != nil {
			break
		}
		records = append(records, rec)
	}
	return records, nil
}
