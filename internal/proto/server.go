package proto

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
)

type GRPCServer struct {
	dashboard *service.Dashboard
	sessions  *service.SessionManager
	logger    *zap.SugaredLogger

	server   *grpc.Server
	listener net.Listener
}

func NewGRPCServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	dashboard *service.Dashboard,
	sessions *service.SessionManager,
	logger *zap.SugaredLogger,
) *GRPCServer {
	instance := GRPCServer{
		dashboard: dashboard,
		sessions:  sessions,
		logger:    logger,
		server:    grpc.NewServer(),
	}
	RegisterBookshelfServer(instance.server, &instance)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr())
			if err != nil {
				return errors.Wrap(err, "failed to listen")
			}
			instance.listener = lis

			go func() {
				if err := instance.server.Serve(lis); err != nil {
					logger.Errorw("GRPC server failed.", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping GRPC server.")
			instance.server.GracefulStop()
			return nil
		},
	})

	return &instance
}

// Addr is the listen address once the server has started.
func (s *GRPCServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListBooks accepts {query, year, favorites} and answers {books: [...]}.
func (s *GRPCServer) ListBooks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	fields := req.GetFields()
	query := fields["query"].GetStringValue()
	year := int(fields["year"].GetNumberValue())
	favorites := fields["favorites"].GetBoolValue()

	var books []service.BookWithMetadata
	switch {
	case query != "":
		books, err = s.dashboard.Search(ctx, session.UserID, query)
	case year > 0:
		books, err = s.dashboard.FilterByYear(ctx, session.UserID, year)
	case favorites:
		books, err = s.dashboard.Favorites(ctx, session.UserID)
	default:
		books, err = s.dashboard.AllBooks(ctx, session.UserID)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	list := make([]interface{}, len(books))
	for i := range books {
		list[i] = bookFields(books[i])
	}
	return structpb.NewStruct(map[string]interface{}{"books": list})
}

// ListYears answers {years: [...]}, newest first.
func (s *GRPCServer) ListYears(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.authenticate(ctx); err != nil {
		return nil, err
	}

	years, err := s.dashboard.Years(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	list := make([]interface{}, len(years))
	for i, y := range years {
		list[i] = y
	}
	return structpb.NewStruct(map[string]interface{}{"years": list})
}

func (s *GRPCServer) authenticate(ctx context.Context) (*db.Session, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok || len(md.Get(TokenMetadataKey)) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	session, err := s.sessions.Current(ctx, md.Get(TokenMetadataKey)[0])
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		s.logger.Errorw("Session lookup failed.", "error", err)
		return nil, status.Error(codes.Internal, "session lookup failed")
	}
	return session, nil
}

func bookFields(b service.BookWithMetadata) map[string]interface{} {
	tags := b.Tags()
	tagList := make([]interface{}, len(tags))
	for i := range tags {
		tagList[i] = tags[i]
	}

	fields := map[string]interface{}{
		"uid":       b.Book.UID,
		"year":      b.Book.PublishedYear(),
		"favourite": b.IsFavourite(),
		"tags":      tagList,
	}
	if b.Book.Title != nil {
		fields["title"] = *b.Book.Title
	}
	if b.Book.Image != nil {
		fields["image"] = *b.Book.Image
	}
	if b.Book.Score != nil {
		fields["score"] = *b.Book.Score
	}
	if b.Book.Popularity != nil {
		fields["popularity"] = *b.Book.Popularity
	}
	if b.Book.PublishedChapterDate != nil {
		fields["publishedChapterDate"] = *b.Book.PublishedChapterDate
	}
	return fields
}
