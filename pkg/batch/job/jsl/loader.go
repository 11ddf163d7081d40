package jsl

import (
	"fmt"

	"gopkg.in/yaml.v3"

	exception "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/exception"
	logger "github.com/tigerroll/go_batch_tutorial/pkg/batch/util/logger"
)

const module = "jsl_loader"

// LoadJSLDefinitionsFromBytes は JSL YAML のバイトデータからジョブ定義をロードし、ジョブ ID をキーとするマップを返します。
// name が省略されたジョブには ID を設定します。
func LoadJSLDefinitionsFromBytes(data []byte) (map[string]Job, error) {
	logger.Infof("JSL 定義のロードを開始します。")

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, exception.NewBatchError(module, "JSL ファイルのパースに失敗しました", err, false, false)
	}
	if len(doc.Jobs) == 0 {
		return nil, exception.NewBatchError(module, "JSL ファイルに 'jobs' が定義されていません", exception.ErrInvalidJobDefinition, false, false)
	}

	jobs := make(map[string]Job, len(doc.Jobs))
	for i, jobDef := range doc.Jobs {
		if jobDef.ID == "" {
			return nil, invalid(fmt.Sprintf("JSL の %d 番目のジョブに 'id' が定義されていません", i+1))
		}
		if _, exists := jobs[jobDef.ID]; exists {
			return nil, invalid(fmt.Sprintf("JSL ジョブID '%s' が重複しています", jobDef.ID))
		}
		if jobDef.Name == "" {
			jobDef.Name = jobDef.ID
		}
		if err := validateSteps(jobDef); err != nil {
			return nil, err
		}
		jobs[jobDef.ID] = jobDef
		logger.Debugf("JSL ジョブ '%s' をロードしました (ステップ数: %d)。", jobDef.ID, len(jobDef.Steps))
	}

	logger.Infof("JSL 定義のロードが完了しました。ロードされたジョブ数: %d", len(jobs))
	return jobs, nil
}

func validateSteps(jobDef Job) error {
	if len(jobDef.Steps) == 0 {
		return invalid(fmt.Sprintf("JSL ジョブ '%s' に 'steps' が定義されていません", jobDef.ID))
	}
	seen := make(map[string]struct{}, len(jobDef.Steps))
	for i, s := range jobDef.Steps {
		if s.ID == "" {
			return invalid(fmt.Sprintf("JSL ジョブ '%s' の %d 番目のステップに 'id' が定義されていません", jobDef.ID, i+1))
		}
		if _, dup := seen[s.ID]; dup {
			return invalid(fmt.Sprintf("JSL ジョブ '%s' のステップID '%s' が重複しています", jobDef.ID, s.ID))
		}
		seen[s.ID] = struct{}{}
		if s.Tasklet.Ref == "" {
			return invalid(fmt.Sprintf("JSL ジョブ '%s' のステップ '%s' に 'tasklet.ref' が定義されていません", jobDef.ID, s.ID))
		}
	}
	return nil
}

func invalid(msg string) error {
	return exception.NewBatchError(module, msg, exception.ErrInvalidJobDefinition, false, false)
}
