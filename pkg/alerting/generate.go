package alerting

//go:generate mockgen -destination=mocks/mock_alerting.go -package=mocks factorydash.xyz/alert-engine/pkg/alerting IRule,ISample,IInbox,IPreference,IDelivery
