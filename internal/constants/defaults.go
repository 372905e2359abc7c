package constants

// Queue processing configuration values
const (
	DefaultQueueBatchLimit = 50
	DefaultPushChunkSize   = 100
	DefaultChunkDelayMs    = 500
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultGatewayTimeoutSec     = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 60
	DefaultServerIdleTimeoutSec  = 60
	DefaultStartupProbeAttempts  = 3
	DefaultStartupBackoffMs      = 500
	DefaultStartupBackoffMaxMs   = 5000
)

// Default server configuration
const (
	DefaultServerPort      = 8080
	ServerErrorChannelSize = 1
)
