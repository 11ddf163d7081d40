package jsl

// Document は JSL ファイルのトップレベル構造です。1つのファイルに複数のジョブを定義できます。
type Document struct {
	Jobs []Job `yaml:"jobs"`
}

// Job は1つのジョブ定義です。ステップは定義順に実行されます。
type Job struct {
	ID                 string         `yaml:"id"`
	Name               string         `yaml:"name,omitempty"`
	Description        string         `yaml:"description,omitempty"`
	Steps              []Step         `yaml:"steps"`
	Listeners          []ComponentRef `yaml:"listeners,omitempty"`      // JobExecutionListener
	StepListeners      []ComponentRef `yaml:"step-listeners,omitempty"` // 全ステップに適用される StepExecutionListener
	Incrementer        ComponentRef   `yaml:"incrementer,omitempty"`
	RequiredParameters []string       `yaml:"required-parameters,omitempty"`
}

// Step は Tasklet 指向のステップ定義です。
type Step struct {
	ID          string       `yaml:"id"`
	Description string       `yaml:"description,omitempty"`
	Tasklet     ComponentRef `yaml:"tasklet"`
}

// ComponentRef は JobFactory に登録されたコンポーネントへの参照です。
type ComponentRef struct {
	Ref        string            `yaml:"ref"`
	Properties map[string]string `yaml:"properties,omitempty"` // JSLから注入されるプロパティ
}
