package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
)

// JobParameters はジョブ実行時に外部から与えられるパラメータです。
// 一度作成されたら変更できません。キーの順序は同一性に影響しません。
type JobParameters struct {
	params map[string]string
}

// NewJobParameters は与えられたマップのコピーから JobParameters を作成します。
func NewJobParameters(params map[string]string) JobParameters {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return JobParameters{params: copied}
}

// EmptyJobParameters は空の JobParameters を返します。
func EmptyJobParameters() JobParameters {
	return JobParameters{params: map[string]string{}}
}

// ParseJobParameters は "key=value" 形式の引数リストから JobParameters を作成します。
// 同じキーが複数回現れた場合はエラーになります。
func ParseJobParameters(args []string) (JobParameters, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return JobParameters{}, exception.NewBatchError("job_parameters",
				fmt.Sprintf("引数 '%s' は key=value 形式ではありません", arg), exception.ErrInvalidParameters, false, false)
		}
		if _, exists := params[key]; exists {
			return JobParameters{}, exception.NewBatchError("job_parameters",
				fmt.Sprintf("パラメータ '%s' が重複しています", key), exception.ErrInvalidParameters, false, false)
		}
		params[key] = value
	}
	return JobParameters{params: params}, nil
}

// Get は指定されたキーの値を返します。
func (jp JobParameters) Get(key string) (string, bool) {
	v, ok := jp.params[key]
	return v, ok
}

// GetString は指定されたキーの値を返します。存在しない場合は defaultValue を返します。
func (jp JobParameters) GetString(key, defaultValue string) string {
	if v, ok := jp.params[key]; ok {
		return v
	}
	return defaultValue
}

// Len はパラメータの数を返します。
func (jp JobParameters) Len() int {
	return len(jp.params)
}

// Keys はソート済みのキー一覧を返します。
func (jp JobParameters) Keys() []string {
	keys := make([]string, 0, len(jp.params))
	for k := range jp.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToMap はパラメータのコピーを返します。
func (jp JobParameters) ToMap() map[string]string {
	copied := make(map[string]string, len(jp.params))
	for k, v := range jp.params {
		copied[k] = v
	}
	return copied
}

// With は key を value に設定した新しい JobParameters を返します。元の値は変更されません。
func (jp JobParameters) With(key, value string) JobParameters {
	next := jp.ToMap()
	next[key] = value
	return JobParameters{params: next}
}

// Equal はキーと値の組がすべて一致する場合に true を返します。
func (jp JobParameters) Equal(other JobParameters) bool {
	if len(jp.params) != len(other.params) {
		return false
	}
	for k, v := range jp.params {
		if ov, ok := other.params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Hash は JobParameters の識別用ハッシュ値を計算します。
// キーをソートした正規 JSON の SHA-256 を16進文字列で返すため、挿入順に依存しません。
func (jp JobParameters) Hash() string {
	// キー順に並べたペア列は常にエンコード可能
	canonical, _ := jp.canonicalJSON()
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func (jp JobParameters) canonicalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range jp.Keys() {
		if i > 0 {
			sb.WriteString(",")
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(jp.params[k])
		if err != nil {
			return nil, err
		}
		sb.Write(keyBytes)
		sb.WriteString(":")
		sb.Write(valBytes)
	}
	sb.WriteString("}")
	return []byte(sb.String()), nil
}

// String は "{key1=value1, key2=value2}" 形式の文字列を返します。
func (jp JobParameters) String() string {
	parts := make([]string, 0, len(jp.params))
	for _, k := range jp.Keys() {
		parts = append(parts, k+"="+jp.params[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON はキー順に並べた JSON オブジェクトとしてエンコードします。
func (jp JobParameters) MarshalJSON() ([]byte, error) {
	return jp.canonicalJSON()
}

// UnmarshalJSON は JSON オブジェクトから JobParameters を復元します。
func (jp *JobParameters) UnmarshalJSON(data []byte) error {
	var params map[string]string
	if err := json.Unmarshal(data, &params); err != nil {
		return err
	}
	if params == nil {
		params = map[string]string{}
	}
	jp.params = params
	return nil
}
