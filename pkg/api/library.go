package api

import (
	"context"
	"net/http"

	"tricys-client/internal/dto"
)

type LibraryAPI struct {
	client *Client
}

func NewLibraryAPI(client *Client) *LibraryAPI {
	return &LibraryAPI{client: client}
}

func (a *LibraryAPI) GetModels(ctx context.Context) ([]dto.LibraryModel, error) {
	var out []dto.LibraryModel
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/library/models"}, &out)
	return out, err
}

func (a *LibraryAPI) UploadModel(ctx context.Context, file FileUpload) (dto.Document, error) {
	var out dto.Document
	err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/library/upload", File: &file}, &out)
	return out, err
}
