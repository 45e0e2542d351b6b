package checks

import "time"

const DEFAULT_TIMEOUT = time.Millisecond * 500

const (
	HTTP     = "HTTP"
	TCP_FULL = "TCP-FULL"
	TCP_HALF = "TCP-HALF"
)
