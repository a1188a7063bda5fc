package config

const (
	defaultConfigPath          = "~/.config/lexideck/config.toml"
	defaultInputFile           = "vocabulary.csv"
	defaultMaxConcurrency      = 4
	defaultRetryLimit          = 5
	defaultFetchTimeoutSeconds = 60
	defaultThrottleDecay       = 5
	defaultRecordParallelism   = 8
	defaultRetryBaseDelayMS    = 1000
	defaultRetryMaxDelayMS     = 30000
	defaultDeckName            = "DE Das Fundament"
	defaultDeckLanguage        = "de"
	defaultStripPattern        = `^(der|die|das)\s+`
	defaultMaxSentences        = 3
	defaultMinImagePrompt      = 5
	defaultMediaRevision       = "v1"
	defaultTTSBaseURL          = "http://127.0.0.1:5050/v1/audio/speech"
	defaultWordVolume          = "+40%"
	defaultSentenceVolume      = "+0%"
	defaultAudioFormat         = "mp3"
	defaultTTSTimeoutSeconds   = 60
	defaultImageBaseURL        = "https://gen.pollinations.ai/image"
	defaultImageModel          = "zimage"
	defaultImageWidth          = 320
	defaultImageHeight         = 200
	defaultJPEGQuality         = 85
	defaultImageTimeoutSeconds = 90
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultVoices = []string{
	"de-DE-ConradNeural",
	"de-DE-AmalaNeural",
	"de-DE-KatjaNeural",
	"de-DE-KillianNeural",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Paths: Paths{
			MediaDir:  dataDir + "/media",
			LogDir:    dataDir + "/logs",
			OutputDir: dataDir + "/output",
			InputFile: defaultInputFile,
		},
		Pipeline: Pipeline{
			MaxConcurrency:      defaultMaxConcurrency,
			RetryLimit:          defaultRetryLimit,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			ThrottleDecay:       defaultThrottleDecay,
			RecordParallelism:   defaultRecordParallelism,
			RetryBaseDelayMS:    defaultRetryBaseDelayMS,
			RetryMaxDelayMS:     defaultRetryMaxDelayMS,
		},
		Deck: Deck{
			Name:           defaultDeckName,
			Language:       defaultDeckLanguage,
			StripPattern:   defaultStripPattern,
			MaxSentences:   defaultMaxSentences,
			MinImagePrompt: defaultMinImagePrompt,
			Shuffle:        true,
			MediaRevision:  defaultMediaRevision,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Voices:         append([]string(nil), defaultVoices...),
			WordVolume:     defaultWordVolume,
			SentenceVolume: defaultSentenceVolume,
			Format:         defaultAudioFormat,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Image: Image{
			Enabled:        true,
			BaseURL:        defaultImageBaseURL,
			Model:          defaultImageModel,
			Width:          defaultImageWidth,
			Height:         defaultImageHeight,
			JPEGQuality:    defaultJPEGQuality,
			TimeoutSeconds: defaultImageTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
