package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Oracle --dir ../domain/chessmatch --output domain/chessmatch --outpkg chessmatchmock --filename oracle_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Creator --dir ../domain/chessmatch --output domain/chessmatch --outpkg chessmatchmock --filename creator_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Dispatcher --dir ../domain/notification --output domain/notification --outpkg notificationmock --filename dispatcher_mock.go
