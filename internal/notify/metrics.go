package notify

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"precipwatch/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricResult labels a notification delivery outcome.
type MetricResult string

const (
	ResultSuccess MetricResult = "success"
	ResultFailure MetricResult = "failure"
)

// Metrics records check-cycle and delivery telemetry.
type Metrics interface {
	RecordTrigger(ctx context.Context, category types.Category, provider types.ProviderKind)
	RecordDelivery(ctx context.Context, result MetricResult)
	RecordCycleDuration(ctx context.Context, provider types.ProviderKind, duration time.Duration)
}

// CloudWatchMetrics implements Metrics by publishing to AWS CloudWatch.
//
// Metrics emitted:
//   - AlertTriggered: Dims {Category, Provider} -- per admitted trigger
//   - NotificationResult: Dims {Result} -- per delivery outcome
//   - CheckCycleDuration: Dims {Provider} -- wall time of one full cycle
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

var _ Metrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to the given
// namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordTrigger emits one AlertTriggered count.
func (m *CloudWatchMetrics) RecordTrigger(ctx context.Context, category types.Category, provider types.ProviderKind) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricAlertTriggered),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(types.DimCategory),
						Value: aws.String(string(category)),
					},
					{
						Name:  aws.String(types.DimProvider),
						Value: aws.String(string(provider)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record trigger metric",
			"error", err.Error(),
			"category", string(category),
		)
	}
}

// RecordDelivery emits one NotificationResult count.
func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, result MetricResult) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricNotificationResult),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(types.DimResult),
						Value: aws.String(string(result)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record delivery metric",
			"error", err.Error(),
			"result", string(result),
		)
	}
}

// RecordCycleDuration emits the wall time of one check cycle in milliseconds.
func (m *CloudWatchMetrics) RecordCycleDuration(ctx context.Context, provider types.ProviderKind, duration time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricCheckCycleDuration),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(types.DimProvider),
						Value: aws.String(string(provider)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record cycle duration metric",
			"error", err.Error(),
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// NopMetrics discards all telemetry. Used when metrics are disabled.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) RecordTrigger(context.Context, types.Category, types.ProviderKind)      {}
func (NopMetrics) RecordDelivery(context.Context, MetricResult)                           {}
func (NopMetrics) RecordCycleDuration(context.Context, types.ProviderKind, time.Duration) {}
