package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jom-io/gorig/apix"
	"github.com/jom-io/gorig/cache"
	"github.com/jom-io/gorig/global/consts"
	"github.com/jom-io/gorig/global/variable"
	"github.com/jom-io/gorig/mid/tokenx"
	"github.com/jom-io/gorig/utils/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	userPrefix  = "OM"
	maxFailures = 5
	lockFor     = 10 * time.Minute
	tokenTTL    = time.Hour
	// the shared key is salted with the current 10 second window
	window = 10

	failureCache = "spiderStatAuthFail"
)

type failures struct {
	Count    int    `json:"count"`
	LockTime int64  `json:"lock_time"`
	IP       string `json:"ip"`
}

// Connect exchanges a bcrypt hash of the OM key for a bearer token.
func Connect(ctx *gin.Context) {
	defer apix.HandlePanic(ctx)
	pwd, e := apix.GetParamType[string](ctx, "pwd", apix.Force)
	if e != nil {
		return
	}
	result, err := ConnectByKey(ctx, pwd)
	apix.HandleData(ctx, consts.CurdSelectFailCode, result, err)
}

func ConnectByKey(ctx *gin.Context, hashed string) (*string, *errors.Error) {
	if variable.OMKey == "" {
		return nil, errors.Verify("Connection rejected")
	}
	id := userPrefix + "-" + ctx.ClientIP()
	now := time.Now()

	f, _ := cache.New[failures](cache.JSON, failureCache).Get(id)
	if f.Count >= maxFailures {
		if now.Unix() < f.LockTime {
			return nil, errors.Verify(lockedMsg(f.LockTime, now))
		}
		f.Count = 0
		f.LockTime = 0
	}

	if err := checkKey(hashed, variable.OMKey, now); err != nil {
		f.IP = id
		f.Count++
		if f.Count >= maxFailures {
			f.LockTime = now.Add(lockFor).Unix()
			_ = cache.New[failures](cache.JSON, failureCache).Set(id, f, 0)
			return nil, errors.Verify(lockedMsg(f.LockTime, now))
		}
		_ = cache.New[failures](cache.JSON, failureCache).Set(id, f, 0)
		return nil, errors.Verify(fmt.Sprintf("Login failed, %d attempts left", maxFailures-f.Count))
	}

	_ = cache.New[failures](cache.JSON, failureCache).Del(id)
	token, e := tokenx.Get(tokenx.Jwt, tokenx.Memory).Manager.GenerateAndRecord(ctx, id, nil, now.Add(tokenTTL).Unix())
	if e != nil {
		return nil, e
	}
	return &token, nil
}

// checkKey accepts a hash of the key salted with the current window or the
// one before it, so a hash made just before a window boundary still works.
func checkKey(hashed, key string, now time.Time) error {
	slot := now.Unix() / window
	var err error
	for _, s := range []int64{slot, slot - 1} {
		if err = bcrypt.CompareHashAndPassword([]byte(hashed), []byte(saltedKey(s, key))); err == nil {
			return nil
		}
	}
	return err
}

func saltedKey(slot int64, key string) string {
	return fmt.Sprintf("%d%s", slot, key)
}

func lockedMsg(lockTime int64, now time.Time) string {
	return fmt.Sprintf("Connection rejected, please try again after %d minutes", (lockTime-now.Unix())/60+1)
}

// IsOperator reports whether a token was issued by Connect.
func IsOperator(userID string) bool {
	return strings.HasPrefix(userID, userPrefix)
}
