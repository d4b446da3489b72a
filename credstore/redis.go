package credstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCorruptRecord reports a stored record whose fields cannot be decoded.
var ErrCorruptRecord = errors.New("credential record corrupt")

const (
	hashFieldUsername       = "username"
	hashFieldPasswordDigest = "password_digest"
	hashFieldRole           = "role"
)

// EXISTS guard keeps a partial update from materializing a half record for an
// unknown username.
const applyUpdateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`

var applyUpdateLua = redis.NewScript(applyUpdateScript)

// RedisOptions configures a [Redis] store.
type RedisOptions struct {
	// Prefix namespaces record keys as "<prefix>:<username>". Default "acr".
	Prefix string
	// Timeout bounds every call. Default 2s.
	Timeout time.Duration
}

// Redis stores each record as a Redis hash.
//
//	Performance: FindByUsername is 1 HGETALL; ApplyUpdate is 1 EVALSHA.
type Redis struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedis creates a Redis-backed store.
func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "acr"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &Redis{
		redis:   client,
		prefix:  opts.Prefix,
		timeout: opts.Timeout,
	}
}

func (s *Redis) key(username string) string {
	return s.prefix + ":" + username
}

// FindByUsername loads and decodes the user's hash.
func (s *Redis) FindByUsername(ctx context.Context, username string) (Record, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	fields, err := s.redis.HGetAll(ctx, s.key(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}

	return decodeHash(username, fields)
}

// ApplyUpdate writes only the changed fields, atomically, and only when the
// record exists.
func (s *Redis) ApplyUpdate(ctx context.Context, username string, changes Changes) error {
	if err := changes.Validate(); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	args := make([]interface{}, 0, len(changes)*2)
	for _, field := range changes.Fields() {
		args = append(args, string(field), encodeHashValue(changes[field]))
	}

	res, err := applyUpdateLua.Run(ctx, s.redis, []string{s.key(username)}, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

// Put replaces the whole record.
func (s *Redis) Put(ctx context.Context, record Record) error {
	if record.Username == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidChanges)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.key(record.Username)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			hashFieldUsername, record.Username,
			hashFieldPasswordDigest, record.PasswordDigest,
			hashFieldRole, record.Role,
			string(FieldIsLocked), encodeHashValue(record.IsLocked),
			string(FieldRecentFailedAttempts), encodeHashValue(record.RecentFailedAttempts),
			string(FieldLastLoginAttempt), encodeHashValue(record.LastLoginAttempt),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks Redis reachability.
func (s *Redis) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func encodeHashValue(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return strconv.FormatInt(x.UnixNano(), 10)
	default:
		return fmt.Sprint(x)
	}
}

func decodeHash(username string, fields map[string]string) (Record, error) {
	rec := Record{
		Username:       username,
		PasswordDigest: fields[hashFieldPasswordDigest],
		Role:           fields[hashFieldRole],
	}
	if stored, ok := fields[hashFieldUsername]; ok && stored != "" && stored != username {
		return Record{}, corrupt(hashFieldUsername)
	}

	switch fields[string(FieldIsLocked)] {
	case "", "0", "false":
		rec.IsLocked = false
	case "1", "true":
		rec.IsLocked = true
	default:
		return Record{}, corrupt(string(FieldIsLocked))
	}

	if raw := fields[string(FieldRecentFailedAttempts)]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Record{}, corrupt(string(FieldRecentFailedAttempts))
		}
		rec.RecentFailedAttempts = n
	}

	if raw := fields[string(FieldLastLoginAttempt)]; raw != "" {
		ns, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Record{}, corrupt(string(FieldLastLoginAttempt))
		}
		rec.LastLoginAttempt = time.Unix(0, ns)
	}

	return rec, nil
}

func corrupt(field string) error {
	return errors.Join(ErrUnavailable, fmt.Errorf("%w: field %s", ErrCorruptRecord, field))
}
