package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-reads the config file whenever it changes on disk and passes every
// valid revision to onChange. Invalid revisions are logged and skipped.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) error {
	if v == nil || v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", event.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", event.Name))
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()

	return nil
}
