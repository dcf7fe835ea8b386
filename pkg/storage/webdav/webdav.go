package webdav

import (
	"github.com/pkg/errors"
	"github.com/studio-b12/gowebdav"
)

type Config struct {
	Endpoint   string `yaml:"endpoint"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	CustomPath string `yaml:"custom-path"`
}

type WebDAV struct {
	Client *gowebdav.Client
	Config *Config
}

func NewClient(conf *Config) (*WebDAV, error) {
	if conf == nil || conf.Endpoint == "" {
		return nil, errors.New("webdav: endpoint is required")
	}
	c := gowebdav.NewClient(conf.Endpoint, conf.User, conf.Password)
	if err := c.Connect(); err != nil {
		return nil, errors.Wrap(err, "webdav")
	}
	return &WebDAV{
		Client: c,
		Config: conf,
	}, nil
}
