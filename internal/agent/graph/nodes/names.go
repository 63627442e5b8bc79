package nodes

// Graph node keys.
const (
	NodeIntentDetection        = "intent_detection"
	NodeGreeting               = "greeting"
	NodeOffTopic               = "off_topic"
	NodeHandoff                = "handoff"
	NodeShareContact           = "share_contact"
	NodeRetrieveCompanyContext = "retrieve_company_context"
	NodeRetrieveUserContext    = "retrieve_user_context"
	NodeAugmentQuery           = "augment_query"
	NodeResponseGeneration     = "response_generation"
	NodeResponseRevision       = "response_revision"
	NodeLogSaving              = "log_saving"
)
