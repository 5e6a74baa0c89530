package handlers

import (
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/startup"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/storage"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/upload"
)

// multipartSlack covers form fields and multipart framing on top of the
// file payload limit.
const multipartSlack = 1 << 20

type Handlers struct {
	db             *database.Database
	store          storage.ObjectStore
	uploader       *upload.Service
	uploadDir      string
	staticDir      string
	maxUploadBytes int64
}

func New(db *database.Database, store storage.ObjectStore, uploader *upload.Service, config *startup.Config) *Handlers {
	if store == nil {
		store = storage.Disabled{}
	}
	return &Handlers{
		db:             db,
		store:          store,
		uploader:       uploader,
		uploadDir:      config.UploadDir,
		staticDir:      config.StaticDir,
		maxUploadBytes: int64(config.MaxUploadFiles)*config.MaxUploadBytes() + multipartSlack,
	}
}
