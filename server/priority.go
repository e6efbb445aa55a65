package server

// Execution priorities of the built-in handlers. Lower values run first
// (outermost). Handlers sharing a priority run in the order their options
// were passed.
const (
	PriorityRecovery     = 100
	PriorityRequestID    = 200
	PriorityGroup        = 250
	PriorityTracing      = 300
	PriorityLogging      = 350
	PriorityMetrics      = 400
	PriorityIPBlock      = 500
	PriorityAuth         = 600
	PriorityRequireActor = 650
	PriorityRateLimit    = 700
	PriorityTimeout      = 720
	PriorityBreaker      = 750
	PriorityCache        = 800
	PriorityUser         = 1000
)
