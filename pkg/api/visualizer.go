package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// VisualizerAPI reads task result artifacts. Payloads are relayed as raw
// JSON; their layout belongs to the result viewer, not this client.
type VisualizerAPI struct {
	client *Client
}

func NewVisualizerAPI(client *Client) *VisualizerAPI {
	return &VisualizerAPI{client: client}
}

func (a *VisualizerAPI) GetMetadata(ctx context.Context, taskID string) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/visualizer/metadata", nil)
}

func (a *VisualizerAPI) GetJobs(ctx context.Context, taskID string, q url.Values) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/visualizer/jobs", q)
}

func (a *VisualizerAPI) GetSeries(ctx context.Context, taskID string, q url.Values) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/visualizer/series", q)
}

func (a *VisualizerAPI) GetMetrics(ctx context.Context, taskID string, q url.Values) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/visualizer/metrics", q)
}

func (a *VisualizerAPI) GetConfig(ctx context.Context, taskID string) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/visualizer/config", nil)
}

func (a *VisualizerAPI) GetLog(ctx context.Context, taskID string) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/visualizer/log", nil)
}

func (a *VisualizerAPI) ExportData(ctx context.Context, taskID string, payload interface{}) (json.RawMessage, error) {
	return a.post(ctx, taskID, "/visualizer/export", payload)
}

func (a *VisualizerAPI) GetFileContent(ctx context.Context, taskID string, q url.Values) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/files/content", q)
}

func (a *VisualizerAPI) OpenHDF5(ctx context.Context, taskID string, payload interface{}) (json.RawMessage, error) {
	return a.post(ctx, taskID, "/visualizer/hdf5/open", payload)
}

func (a *VisualizerAPI) GetHDF5Status(ctx context.Context, taskID string) (json.RawMessage, error) {
	return a.get(ctx, taskID, "/visualizer/hdf5/status", nil)
}

func (a *VisualizerAPI) StopHDF5(ctx context.Context, taskID string) (json.RawMessage, error) {
	return a.post(ctx, taskID, "/visualizer/hdf5/stop", nil)
}

func (a *VisualizerAPI) GetActiveProcesses(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/tasks/visualizer/hdf5/processes"}, &out)
	return out, err
}

func (a *VisualizerAPI) GetStats(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/tasks/visualizer/stats"}, &out)
	return out, err
}

func (a *VisualizerAPI) get(ctx context.Context, taskID, suffix string, q url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/tasks/{id}" + suffix, Params: []string{taskID}, Query: q}, &out)
	return out, err
}

func (a *VisualizerAPI) post(ctx context.Context, taskID, suffix string, payload interface{}) (json.RawMessage, error) {
	var out json.RawMessage
	err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/tasks/{id}" + suffix, Params: []string{taskID}, JSON: payload}, &out)
	return out, err
}
