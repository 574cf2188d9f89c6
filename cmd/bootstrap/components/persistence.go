package components

import (
	"tutor-booking/internal/infra/notify"
	"tutor-booking/internal/infra/readstore"
	"tutor-booking/internal/infra/repository"
	"tutor-booking/internal/infra/uow"
	"tutor-booking/internal/infra/ws"
	"tutor-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	readstoreModule,
	repositoryModule,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		fx.Annotate(
			NewDirectoryReadStore,
			fx.As(new(shared.UserDirectory)),
		),
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		uow.NewPostgresUoW,
		NewNotificationRepository,
		fx.Annotate(
			NewOutboxNotifier,
			fx.As(new(shared.NotificationPort)),
		),
	),
)

func NewDirectoryReadStore(pool *pgxpool.Pool) *readstore.DirectoryReadStore {
	return readstore.NewDirectoryReadStore(pool)
}

func NewNotificationRepository(pool *pgxpool.Pool) *repository.NotificationRepository {
	return repository.NewNotificationRepository(pool)
}

func NewOutboxNotifier(jobs *repository.NotificationRepository, hub *ws.Hub) *notify.OutboxNotifier {
	return notify.NewOutboxNotifier(jobs, hub)
}
