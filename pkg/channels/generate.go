package channels

//go:generate mockgen -destination=mocks/mock_channels.go -package=mocks factorydash.xyz/alert-engine/pkg/channels Sender,Mailer,Publisher
